package storypub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eringen/storypub/content"
	"github.com/eringen/storypub/index"
	"github.com/eringen/storypub/story"
)

var (
	// ErrNotFound is returned when no story has the requested id.
	ErrNotFound = errors.New("story not found")
	// ErrMissingFields is returned when a title or content is blank.
	ErrMissingFields = errors.New("title and content are required")
	// ErrBlobWrite is returned when a story body could not be stored. The
	// underlying content.ErrWrite stays in the chain.
	ErrBlobWrite = errors.New("story content could not be stored")
)

// Publisher regenerates published output from a story list.
type Publisher interface {
	RenderAll(ctx context.Context, stories []story.Story) error
}

// Store is the story repository. Every operation holds one mutex for its
// whole load, modify, persist and republish sequence, so concurrent callers
// never interleave.
type Store struct {
	mu        sync.Mutex
	index     *index.Index
	blobs     *content.Store
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store's logger.
func WithStoreLogger(log logrus.FieldLogger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// WithClock replaces time.Now for default dates.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces story.NewID for new stories.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore returns a Store over idx and blobs that republishes through
// publisher after every mutation.
func NewStore(idx *index.Index, blobs *content.Store, publisher Publisher, opts ...StoreOption) *Store {
	s := &Store{
		index:     idx,
		blobs:     blobs,
		publisher: publisher,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		newID:     story.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "store")
	return s
}

// List returns every story, drafts included, in stored order.
func (s *Store) List(ctx context.Context) []story.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Load(ctx)
}

// Get returns the story with id.
func (s *Store) Get(ctx context.Context, id string) (story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories := s.index.Load(ctx)
	i := find(stories, id)
	if i < 0 {
		return story.Story{}, ErrNotFound
	}
	return stories[i], nil
}

// Create stores a new story at the head of the list and republishes.
func (s *Store) Create(ctx context.Context, in StoryInput) (story.Story, error) {
	title, body, err := validate(in)
	if err != nil {
		return story.Story{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.index.Load(ctx)
	id := s.newID()
	ref := story.BlobName(id)
	if err := s.blobs.Write(ctx, ref, body); err != nil {
		return story.Story{}, fmt.Errorf("%w: %w", ErrBlobWrite, err)
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = story.Today(s.now())
	}
	created := story.Story{
		ID:         id,
		Title:      title,
		Excerpt:    story.ExcerptOr(in.Excerpt, body),
		ContentRef: ref,
		Date:       date,
		Published:  in.Published,
		Content:    body,
	}
	stories = append([]story.Story{created}, stories...)

	if err := s.persist(ctx, stories); err != nil {
		if rmErr := s.blobs.Remove(ctx, ref); rmErr != nil {
			s.log.WithError(rmErr).WithField("id", id).Warn("orphaned blob not removed")
		}
		return story.Story{}, err
	}
	s.log.WithField("id", id).Info("story created")
	s.republish(ctx, stories)
	return stories[0], nil
}

// Update replaces the fields of the story with id. A blank excerpt is
// derived again from the new content; a blank date and an unset published
// flag keep their stored values.
func (s *Store) Update(ctx context.Context, id string, in StoryInput) (story.Story, error) {
	title, body, err := validate(in)
	if err != nil {
		return story.Story{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.index.Load(ctx)
	i := find(stories, id)
	if i < 0 {
		return story.Story{}, ErrNotFound
	}
	cur := stories[i]

	// Legacy records have no blob yet; persist writes one for them.
	if cur.ContentRef != "" && cur.Content != body {
		if err := s.blobs.Write(ctx, cur.ContentRef, body); err != nil {
			return story.Story{}, fmt.Errorf("%w: %w", ErrBlobWrite, err)
		}
	}

	next := cur
	next.Title = title
	next.Excerpt = story.ExcerptOr(in.Excerpt, body)
	next.Content = body
	if d := strings.TrimSpace(in.Date); d != "" {
		next.Date = d
	}
	if in.Published.IsSet() {
		next.Published = in.Published
	}
	stories[i] = next

	if err := s.persist(ctx, stories); err != nil {
		return story.Story{}, err
	}
	s.log.WithField("id", id).Info("story updated")
	s.republish(ctx, stories)
	return stories[i], nil
}

// Delete removes the story with id and its blob, then republishes.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.index.Load(ctx)
	i := find(stories, id)
	if i < 0 {
		return ErrNotFound
	}
	removed := stories[i]
	kept := append(stories[:i:i], stories[i+1:]...)

	if err := s.persist(ctx, kept); err != nil {
		return err
	}
	if removed.ContentRef != "" {
		if err := s.blobs.Remove(ctx, removed.ContentRef); err != nil {
			s.log.WithError(err).WithField("id", id).Warn("blob not removed")
		}
	}
	s.log.WithField("id", id).Info("story deleted")
	s.republish(ctx, kept)
	return nil
}

// Republish regenerates the site from the stored stories without changing
// them. The returned error lists the pages that failed.
func (s *Store) Republish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisher == nil {
		return nil
	}
	return s.publisher.RenderAll(ctx, s.index.Load(ctx))
}

// Migrate moves every inline legacy body into its own blob and reports how
// many stories were migrated.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories := s.index.Load(ctx)
	n := 0
	for _, st := range stories {
		if st.ContentRef == "" && st.Content != "" {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.persist(ctx, stories); err != nil {
		return 0, err
	}
	return n, nil
}

// persist saves stories, surfacing blob failures from migration as
// ErrBlobWrite.
func (s *Store) persist(ctx context.Context, stories []story.Story) error {
	if err := s.index.Save(ctx, stories); err != nil {
		if errors.Is(err, content.ErrWrite) {
			return fmt.Errorf("%w: %w", ErrBlobWrite, err)
		}
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// republish renders the new state. Failures are logged only: the mutation
// has already been persisted.
func (s *Store) republish(ctx context.Context, stories []story.Story) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.RenderAll(ctx, stories); err != nil {
		s.log.WithError(err).Warn("republish incomplete")
	}
}

// validate returns the trimmed title and body, which are what gets stored.
func validate(in StoryInput) (title, body string, err error) {
	title = strings.TrimSpace(in.Title)
	body = strings.TrimSpace(in.Content)
	if title == "" || body == "" {
		return "", "", ErrMissingFields
	}
	return title, body, nil
}

func find(stories []story.Story, id string) int {
	if id == "" {
		return -1
	}
	for i, st := range stories {
		if st.ID == id {
			return i
		}
	}
	return -1
}
