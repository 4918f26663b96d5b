// Package publish regenerates the static site from the current story list.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/eringen/storypub/content"
	"github.com/eringen/storypub/internal/fsutil"
	"github.com/eringen/storypub/story"
	"github.com/eringen/storypub/views"
)

// StoriesDir is the output subdirectory holding one page per story.
const StoriesDir = "stories"

// Publisher writes one page per published story, a listing page, and the
// feed, sitemap and stylesheet into an output directory.
type Publisher struct {
	dir      string
	site     views.Site
	renderer Renderer
	log      logrus.FieldLogger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRenderer replaces the default templ renderer.
func WithRenderer(r Renderer) Option {
	return func(p *Publisher) {
		p.renderer = r
	}
}

// WithLogger sets the logger used for per-page diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Publisher) {
		p.log = log
	}
}

// New returns a Publisher writing into dir. An empty PageExt defaults to
// "html".
func New(dir string, site views.Site, opts ...Option) *Publisher {
	if site.PageExt == "" {
		site.PageExt = "html"
	}
	site.PageExt = strings.TrimPrefix(site.PageExt, ".")
	p := &Publisher{
		dir:      dir,
		site:     site,
		renderer: TemplRenderer{Site: site},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("component", "publish")
	return p
}

// Dir returns the output directory.
func (p *Publisher) Dir() string {
	return p.dir
}

// Site returns the site settings pages are rendered with.
func (p *Publisher) Site() views.Site {
	return p.site
}

// Renderer returns the renderer pages are produced with.
func (p *Publisher) Renderer() Renderer {
	return p.renderer
}

// RenderAll regenerates the site from stories. Every page is rendered and
// written independently: a failure is logged, collected, and does not stop
// the remaining pages. Afterwards the stories directory holds exactly the
// pages of the published stories. The joined error is informational;
// callers must not treat it as a failed mutation.
func (p *Publisher) RenderAll(ctx context.Context, stories []story.Story) error {
	var errs []error
	storiesDir := filepath.Join(p.dir, StoriesDir)
	if err := os.MkdirAll(storiesDir, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("create output dir: %w", err))
	}

	published := make([]story.Story, 0, len(stories))
	keep := mapset.NewThreadUnsafeSet[string]()
	for _, s := range stories {
		if !s.IsPublished() {
			continue
		}
		if s.ID == "" {
			p.log.WithField("title", s.Title).Warn("skipping story without id")
			continue
		}
		if !content.ValidName(views.StoryFile(s.ID, p.site.PageExt)) {
			p.log.WithField("id", s.ID).Warn("skipping story with unsafe id")
			continue
		}
		published = append(published, s)
		keep.Add(views.StoryFile(s.ID, p.site.PageExt))
		if err := p.renderStory(ctx, storiesDir, s); err != nil {
			p.log.WithError(err).WithField("id", s.ID).Warn("story page not rendered")
			errs = append(errs, err)
		}
	}
	if err := p.prune(storiesDir, keep); err != nil {
		p.log.WithError(err).Warn("stale story pages not removed")
		errs = append(errs, err)
	}

	if err := p.renderIndex(ctx, published); err != nil {
		p.log.WithError(err).Warn("listing page not rendered")
		errs = append(errs, err)
	}
	if p.site.URL != "" {
		if err := p.writeFeed(published); err != nil {
			p.log.WithError(err).Warn("feed not written")
			errs = append(errs, err)
		}
		if err := p.writeSitemap(published); err != nil {
			p.log.WithError(err).Warn("sitemap not written")
			errs = append(errs, err)
		}
	}
	if err := p.writeStylesheet(); err != nil {
		p.log.WithError(err).Warn("stylesheet not written")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StoryVars builds the variables of the story template for s.
func StoryVars(s story.Story) map[string]any {
	long, _ := story.LongDate(s.Date)
	return map[string]any{
		"id":       s.ID,
		"title":    s.Title,
		"date":     s.Date,
		"longDate": long,
		"excerpt":  s.Excerpt,
		"content":  s.Content,
	}
}

func (p *Publisher) renderStory(ctx context.Context, dir string, s story.Story) error {
	page, err := p.renderer.Render(ctx, TemplateStory, StoryVars(s))
	if err != nil {
		return fmt.Errorf("story %s: %w", s.ID, err)
	}
	if err := fsutil.WriteFile(filepath.Join(dir, views.StoryFile(s.ID, p.site.PageExt)), []byte(page), 0o644); err != nil {
		return fmt.Errorf("story %s: %w", s.ID, err)
	}
	return nil
}

// prune removes generated pages in dir that are not in keep.
func (p *Publisher) prune(dir string, keep mapset.Set[string]) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list story pages: %w", err)
	}
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != "."+p.site.PageExt || keep.Contains(name) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove stale page %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) renderIndex(ctx context.Context, published []story.Story) error {
	entries := make([]views.ListingEntry, 0, len(published))
	for _, s := range published {
		long, ok := story.LongDate(s.Date)
		switch {
		case strings.TrimSpace(s.Date) == "":
			p.log.WithField("id", s.ID).Debug("story has no date")
		case !ok:
			p.log.WithFields(logrus.Fields{"id": s.ID, "date": s.Date}).Warn("unparseable story date, listing it unchanged")
		}
		entries = append(entries, views.ListingEntry{
			ID:      s.ID,
			Title:   s.Title,
			Excerpt: s.Excerpt,
			Date:    long,
			Href:    views.StoryHref(s.ID, p.site.PageExt),
		})
	}
	page, err := p.renderer.Render(ctx, TemplateIndex, map[string]any{"stories": entries})
	if err != nil {
		return fmt.Errorf("listing: %w", err)
	}
	if err := fsutil.WriteFile(filepath.Join(p.dir, "index."+p.site.PageExt), []byte(page), 0o644); err != nil {
		return fmt.Errorf("listing: %w", err)
	}
	return nil
}

func (p *Publisher) writeStylesheet() error {
	return fsutil.WriteFile(filepath.Join(p.dir, "style.css"), Stylesheet(), 0o644)
}
