package publish

import (
	"bytes"
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/eringen/storypub/markdown"
	"github.com/eringen/storypub/views"
)

// Template names understood by a Renderer.
const (
	TemplateStory = "story"
	TemplateIndex = "index"
)

// Renderer turns a named template and its variables into page text.
//
// The "story" template receives the string variables id, title, date,
// longDate, excerpt and content. The "index" template receives "stories", a
// []views.ListingEntry.
type Renderer interface {
	Render(ctx context.Context, name string, vars map[string]any) (string, error)
}

// TemplRenderer renders the views package's templ components.
type TemplRenderer struct {
	Site views.Site
}

// Render implements Renderer.
func (r TemplRenderer) Render(ctx context.Context, name string, vars map[string]any) (string, error) {
	var cmp templ.Component
	switch name {
	case TemplateStory:
		cmp = views.Story(r.Site, views.StoryPage{
			ID:       stringVar(vars, "id"),
			Title:    stringVar(vars, "title"),
			Date:     stringVar(vars, "date"),
			LongDate: stringVar(vars, "longDate"),
			Excerpt:  stringVar(vars, "excerpt"),
			Body:     markdown.Component(stringVar(vars, "content")),
		})
	case TemplateIndex:
		entries, ok := vars["stories"].([]views.ListingEntry)
		if !ok && vars["stories"] != nil {
			return "", fmt.Errorf("template %s: stories has type %T", name, vars["stories"])
		}
		cmp = views.Index(r.Site, entries)
	default:
		return "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := cmp.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func stringVar(vars map[string]any, key string) string {
	s, _ := vars[key].(string)
	return s
}
