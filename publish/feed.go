package publish

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"time"

	"github.com/eringen/storypub/internal/fsutil"
	"github.com/eringen/storypub/story"
	"github.com/eringen/storypub/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (p *Publisher) writeFeed(published []story.Story) error {
	base := p.site.URL
	items := make([]rssItem, 0, len(published))
	for _, s := range published {
		pubDate := ""
		if t, ok := story.ParseDate(s.Date); ok {
			pubDate = t.Format(time.RFC1123Z)
		}
		link := views.BuildURL(base, views.StoryHref(s.ID, p.site.PageExt))
		items = append(items, rssItem{
			Title:       s.Title,
			Link:        link,
			Description: s.Excerpt,
			PubDate:     pubDate,
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       p.site.Name,
			Link:        views.BuildURL(base),
			Description: p.site.Description,
			Items:       items,
		},
	}
	return p.writeXML("feed.xml", feed)
}

func (p *Publisher) writeSitemap(published []story.Story) error {
	base := p.site.URL
	urls := []sitemapURL{
		{Loc: views.BuildURL(base)},
	}
	for _, s := range published {
		u := sitemapURL{Loc: views.BuildURL(base, views.StoryHref(s.ID, p.site.PageExt))}
		if t, ok := story.ParseDate(s.Date); ok {
			u.LastMod = t.Format(story.DateLayout)
		}
		urls = append(urls, u)
	}
	return p.writeXML("sitemap.xml", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

func (p *Publisher) writeXML(name string, v any) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	buf.WriteByte('\n')
	return fsutil.WriteFile(filepath.Join(p.dir, name), buf.Bytes(), 0o644)
}
