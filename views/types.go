package views

import "github.com/a-h/templ"

// Site holds site-wide settings every page needs.
type Site struct {
	Name        string // SITE_NAME
	URL         string // SITE_URL, canonical base for feeds and JSON-LD
	Description string // SITE_DESCRIPTION
	Author      string // SITE_AUTHOR
	PageExt     string // extension of generated pages, without the dot
}

// StoryPage is the data rendered on a story's own page.
type StoryPage struct {
	ID       string
	Title    string
	Date     string // as stored
	LongDate string // human readable, or Date when it cannot be parsed
	Excerpt  string
	Body     templ.Component
}

// ListingEntry is one story on the listing page.
type ListingEntry struct {
	ID      string
	Title   string
	Excerpt string
	Date    string // human readable when the stored date parses
	Href    string // relative link to the story page
}

// PageMeta carries per-page metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical, empty when the site URL is unknown
	Root        string // relative prefix back to the output root, "" or "../"
	JSONLD      string
}
