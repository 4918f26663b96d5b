// Package views holds the templ components the published site is built
// from.
package views

import (
	"bytes"
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the shared HTML document.
func Layout(site Site, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := renderLayout(ctx, &buf, site, meta, body); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func renderLayout(ctx context.Context, buf *bytes.Buffer, site Site, meta PageMeta, body templ.Component) error {
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\"/>\n")
	buf.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>\n")
	buf.WriteString("<title>")
	buf.WriteString(html.EscapeString(meta.Title))
	buf.WriteString("</title>\n")
	if meta.Description != "" {
		buf.WriteString("<meta name=\"description\" content=\"")
		buf.WriteString(html.EscapeString(meta.Description))
		buf.WriteString("\"/>\n")
	}
	if meta.URL != "" {
		buf.WriteString("<link rel=\"canonical\" href=\"")
		buf.WriteString(html.EscapeString(meta.URL))
		buf.WriteString("\"/>\n")
	}
	buf.WriteString("<link rel=\"stylesheet\" href=\"")
	buf.WriteString(html.EscapeString(meta.Root + "style.css"))
	buf.WriteString("\"/>\n")
	if site.URL != "" {
		buf.WriteString("<link rel=\"alternate\" type=\"application/rss+xml\" title=\"")
		buf.WriteString(html.EscapeString(site.Name))
		buf.WriteString("\" href=\"")
		buf.WriteString(html.EscapeString(meta.Root + "feed.xml"))
		buf.WriteString("\"/>\n")
	}
	if meta.JSONLD != "" {
		buf.WriteString("<script type=\"application/ld+json\">")
		buf.WriteString(meta.JSONLD)
		buf.WriteString("</script>\n")
	}
	buf.WriteString("</head>\n<body>\n<header class=\"site-header\"><a href=\"")
	buf.WriteString(html.EscapeString(meta.Root + "index." + site.PageExt))
	buf.WriteString("\">")
	buf.WriteString(html.EscapeString(site.Name))
	buf.WriteString("</a></header>\n<main>\n")
	if body != nil {
		if err := body.Render(ctx, buf); err != nil {
			return err
		}
	}
	buf.WriteString("\n</main>\n")
	if site.Author != "" {
		buf.WriteString("<footer class=\"site-footer\">")
		buf.WriteString(html.EscapeString(site.Author))
		buf.WriteString("</footer>\n")
	}
	buf.WriteString("</body>\n</html>\n")
	return nil
}

// Story renders a single story page.
func Story(site Site, page StoryPage) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		buf.WriteString("<article class=\"story\">\n<h1>")
		buf.WriteString(html.EscapeString(page.Title))
		buf.WriteString("</h1>\n")
		if page.Date != "" {
			buf.WriteString("<time datetime=\"")
			buf.WriteString(html.EscapeString(page.Date))
			buf.WriteString("\">")
			buf.WriteString(html.EscapeString(page.LongDate))
			buf.WriteString("</time>\n")
		}
		buf.WriteString("<div class=\"story-body\">")
		if page.Body != nil {
			if err := page.Body.Render(ctx, &buf); err != nil {
				return err
			}
		}
		buf.WriteString("</div>\n</article>")
		_, err := w.Write(buf.Bytes())
		return err
	})
	meta := PageMeta{
		Title:       page.Title + " | " + site.Name,
		Description: page.Excerpt,
		URL:         BuildURL(site.URL, StoryHref(page.ID, site.PageExt)),
		Root:        "../",
		JSONLD:      StoryJSONLD(site, page),
	}
	return Layout(site, meta, body)
}

// Index renders the listing of published stories.
func Index(site Site, entries []ListingEntry) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		renderListing(&buf, site, entries)
		_, err := w.Write(buf.Bytes())
		return err
	})
	meta := PageMeta{
		Title:       site.Name,
		Description: site.Description,
		URL:         BuildURL(site.URL),
		JSONLD:      WebsiteJSONLD(site),
	}
	return Layout(site, meta, body)
}

func renderListing(buf *bytes.Buffer, site Site, entries []ListingEntry) {
	buf.WriteString("<h1>")
	buf.WriteString(html.EscapeString(site.Name))
	buf.WriteString("</h1>\n")
	if site.Description != "" {
		buf.WriteString("<p class=\"site-description\">")
		buf.WriteString(html.EscapeString(site.Description))
		buf.WriteString("</p>\n")
	}
	if len(entries) == 0 {
		buf.WriteString("<p class=\"empty\">No stories yet.</p>")
		return
	}
	buf.WriteString("<ul class=\"story-list\">\n")
	for _, e := range entries {
		buf.WriteString("<li><a href=\"")
		buf.WriteString(html.EscapeString(e.Href))
		buf.WriteString("\">")
		buf.WriteString(html.EscapeString(e.Title))
		buf.WriteString("</a>")
		if e.Date != "" {
			buf.WriteString(" <span class=\"date\">")
			buf.WriteString(html.EscapeString(e.Date))
			buf.WriteString("</span>")
		}
		if e.Excerpt != "" {
			buf.WriteString("<p>")
			buf.WriteString(html.EscapeString(e.Excerpt))
			buf.WriteString("</p>")
		}
		buf.WriteString("</li>\n")
	}
	buf.WriteString("</ul>")
}
