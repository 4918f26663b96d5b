// Package index persists story metadata as one aggregate JSON document.
//
// Bodies live in the content store; the document only carries a contentRef
// per story. Older documents that still hold the body inline are read as-is
// and converted to blob-backed records the first time they are saved.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/eringen/storypub/content"
	"github.com/eringen/storypub/internal/fsutil"
	"github.com/eringen/storypub/story"
)

// Index loads and saves the metadata document at a fixed path.
type Index struct {
	path  string
	blobs *content.Store
	log   logrus.FieldLogger
	newID func() string
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for soft-failure diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(x *Index) {
		x.log = log
	}
}

// WithIDFunc replaces the id generator used for legacy records without an id.
func WithIDFunc(fn func() string) Option {
	return func(x *Index) {
		x.newID = fn
	}
}

// New returns an Index for the document at path, hydrating bodies from blobs.
func New(path string, blobs *content.Store, opts ...Option) *Index {
	x := &Index{
		path:  path,
		blobs: blobs,
		log:   logrus.StandardLogger(),
		newID: story.NewID,
	}
	for _, opt := range opts {
		opt(x)
	}
	x.log = x.log.WithField("component", "index")
	return x
}

// Path returns the location of the metadata document.
func (x *Index) Path() string {
	return x.path
}

// record is the persisted shape. It has no content field, so a body can
// never reach the document.
type record struct {
	ID         string          `json:"id"`
	Title      text            `json:"title"`
	Excerpt    text            `json:"excerpt"`
	ContentRef string          `json:"contentRef,omitempty"`
	Date       text            `json:"date"`
	Published  story.Published `json:"published"`
}

// text is a display field that older documents did not always write as a
// string. Numbers and booleans keep their literal form; null, objects and
// arrays decode to "". Ids and contentRefs address files and stay strict.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
	case data[0] == '{', data[0] == '[', bytes.Equal(data, []byte("null")):
		*t = ""
	default:
		*t = text(data)
	}
	return nil
}

// legacyRecord is what Load accepts: the persisted shape plus the inline
// body older documents carried.
type legacyRecord struct {
	record
	Content *string `json:"content,omitempty"`
}

// Load returns every story in document order with bodies attached. A missing
// or unparseable document yields an empty list; malformed or duplicate
// entries are skipped. Load never fails.
func (x *Index) Load(ctx context.Context) []story.Story {
	stories := []story.Story{}

	data, err := os.ReadFile(x.path)
	if errors.Is(err, os.ErrNotExist) {
		return stories
	}
	if err != nil {
		x.log.WithError(err).Warn("index unreadable, treating as empty")
		return stories
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		x.log.WithError(err).Warn("index unparseable, treating as empty")
		return stories
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for i, msg := range raw {
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		// An absent published key means published; an explicit null stays unset.
		rec := legacyRecord{record: record{Published: story.PublishedTrue}}
		if err := json.Unmarshal(msg, &rec); err != nil {
			x.log.WithError(err).WithField("position", i).Warn("skipping malformed index entry")
			continue
		}
		if rec.ID != "" {
			if seen.Contains(rec.ID) {
				x.log.WithField("id", rec.ID).Warn("skipping duplicate index entry")
				continue
			}
			seen.Add(rec.ID)
		}

		s := story.Story{
			ID:         rec.ID,
			Title:      string(rec.Title),
			Excerpt:    string(rec.Excerpt),
			ContentRef: rec.ContentRef,
			Date:       string(rec.Date),
			Published:  rec.Published,
		}
		switch {
		case rec.ContentRef != "":
			s.Content = x.blobs.Read(ctx, rec.ContentRef)
		case rec.Content != nil:
			s.Content = *rec.Content
		}
		stories = append(stories, s)
	}
	return stories
}

// pending is a story resolved for writing. Stories that carry a body but no
// blob yet are marked for migration.
type pending struct {
	rec     record
	migrate bool
	body    string
}

// Save replaces the document with stories. Stories carrying a body but no
// contentRef get a blob named after their id (a fresh id when they have
// none), and the id and contentRef are written back into stories. If any
// blob cannot be written the document is left untouched and stories is not
// modified.
func (x *Index) Save(ctx context.Context, stories []story.Story) error {
	resolved := make([]pending, len(stories))
	for i, s := range stories {
		p := pending{rec: record{
			ID:         s.ID,
			Title:      text(s.Title),
			Excerpt:    text(s.Excerpt),
			ContentRef: s.ContentRef,
			Date:       text(s.Date),
			Published:  s.Published,
		}}
		if p.rec.ID == "" {
			p.rec.ID = x.newID()
		}
		if p.rec.ContentRef == "" && s.Content != "" {
			p.migrate = true
			p.body = s.Content
			p.rec.ContentRef = story.BlobName(p.rec.ID)
		}
		resolved[i] = p
	}

	migrated := 0
	for _, p := range resolved {
		if !p.migrate {
			continue
		}
		if err := x.blobs.Write(ctx, p.rec.ContentRef, p.body); err != nil {
			return fmt.Errorf("migrate story %s: %w", p.rec.ID, err)
		}
		migrated++
	}

	records := make([]record, len(resolved))
	for i, p := range resolved {
		records[i] = p.rec
	}
	if err := x.write(records); err != nil {
		return err
	}

	for i, p := range resolved {
		stories[i].ID = p.rec.ID
		stories[i].ContentRef = p.rec.ContentRef
	}
	if migrated > 0 {
		x.log.WithField("count", migrated).Info("migrated inline story content to blobs")
	}
	return nil
}

func (x *Index) write(records []record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := fsutil.WriteFile(x.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
