package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// BuildURL joins path segments onto a base URL. It returns "" for an empty
// or unparseable base.
func BuildURL(base string, pathSegments ...string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) == 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// StoryFile is the file name of a story page relative to the stories
// directory.
func StoryFile(id, ext string) string {
	return id + "." + ext
}

// StoryHref is the link to a story page from the output root.
func StoryHref(id, ext string) string {
	return "stories/" + url.PathEscape(StoryFile(id, ext))
}

// WebsiteJSONLD produces a Schema.org WebSite block for the listing page.
func WebsiteJSONLD(site Site) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
	}
	if u := BuildURL(site.URL); u != "" {
		data["url"] = u
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": site.Author}
	}
	return marshalJSONLD(data)
}

// StoryJSONLD produces a Schema.org ShortStory block for a story page.
func StoryJSONLD(site Site, page StoryPage) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "ShortStory",
		"headline":    page.Title,
		"description": page.Excerpt,
	}
	if page.Date != "" {
		data["datePublished"] = page.Date
	}
	if u := BuildURL(site.URL, StoryHref(page.ID, site.PageExt)); u != "" {
		data["url"] = u
	}
	if site.Author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": site.Author}
	}
	if site.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": site.Name}
	}
	return marshalJSONLD(data)
}

func marshalJSONLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
