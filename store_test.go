package storypub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eringen/storypub/content"
	"github.com/eringen/storypub/index"
	"github.com/eringen/storypub/publish"
	"github.com/eringen/storypub/story"
	"github.com/eringen/storypub/views"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][]story.Story
	err   error
}

func (p *recordingPublisher) RenderAll(_ context.Context, stories []story.Story) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]story.Story(nil), stories...))
	return p.err
}

func (p *recordingPublisher) last() []story.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type testEnv struct {
	store      *Store
	pub        *recordingPublisher
	dir        string
	indexPath  string
	contentDir string
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC)
}

func setupTestStore(t *testing.T, contentDir string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	if contentDir == "" {
		contentDir = filepath.Join(dir, "content")
	}
	backend, err := content.NewFS(contentDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	log := quietLogger()
	blobs := content.New(backend, log)
	indexPath := filepath.Join(dir, "stories.json")
	idx := index.New(indexPath, blobs, index.WithLogger(log), index.WithIDFunc(sequentialIDs()))
	pub := &recordingPublisher{}
	s := NewStore(idx, blobs, pub,
		WithStoreLogger(log),
		WithClock(fixedClock),
		WithIDGenerator(sequentialIDs()),
	)
	return &testEnv{store: s, pub: pub, dir: dir, indexPath: indexPath, contentDir: contentDir}
}

func writeIndex(t *testing.T, path, doc string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
}

func readText(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestCreateValidatesBeforeIO(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()

	tests := []struct {
		name string
		in   StoryInput
	}{
		{"blank title", StoryInput{Title: "  ", Content: "body"}},
		{"blank content", StoryInput{Title: "Title", Content: " \n\t"}},
		{"both missing", StoryInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.store.Create(ctx, tt.in); !errors.Is(err, ErrMissingFields) {
				t.Fatalf("expected ErrMissingFields, got %v", err)
			}
		})
	}
	if _, err := os.Stat(env.indexPath); !os.IsNotExist(err) {
		t.Fatalf("index should not exist after rejected creates, stat err: %v", err)
	}
	if env.pub.count() != 0 {
		t.Fatalf("rejected creates should not republish")
	}
}

func TestCreateDefaultsAndPrepends(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()

	long := strings.Repeat("a", 200)
	first, err := env.store.Create(ctx, StoryInput{Title: "  First  ", Content: long})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID != "id1" || first.ContentRef != "id1.md" {
		t.Fatalf("unexpected id/contentRef: %q %q", first.ID, first.ContentRef)
	}
	if first.Title != "First" {
		t.Errorf("title should be trimmed, got %q", first.Title)
	}
	if first.Date != "2024-05-06" {
		t.Errorf("default date = %q, want 2024-05-06", first.Date)
	}
	if want := strings.Repeat("a", 140) + "…"; first.Excerpt != want {
		t.Errorf("derived excerpt = %q", first.Excerpt)
	}
	if first.Content != long {
		t.Errorf("created story should carry its content")
	}
	if first.Published.IsSet() {
		t.Errorf("published should stay unset when not supplied, got %v", first.Published)
	}

	second, err := env.store.Create(ctx, StoryInput{
		Title:     "Second",
		Content:   "short",
		Excerpt:   "hand written",
		Date:      "2023-12-24",
		Published: story.PublishedFalse,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.Excerpt != "hand written" || second.Date != "2023-12-24" || second.Published != story.PublishedFalse {
		t.Errorf("supplied fields not kept: %+v", second)
	}

	list := env.store.List(ctx)
	if len(list) != 2 || list[0].ID != "id2" || list[1].ID != "id1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if got := readText(t, filepath.Join(env.contentDir, "id2.md")); got != "short" {
		t.Errorf("blob content = %q", got)
	}
	if doc := readText(t, env.indexPath); strings.Contains(doc, "short") || strings.Contains(doc, `"content"`) {
		t.Errorf("index must not contain bodies: %s", doc)
	}
	if last := env.pub.last(); len(last) != 2 || last[0].ID != "id2" {
		t.Errorf("republish should receive the post-mutation list, got %+v", last)
	}
}

func TestCreateBlobFailurePersistsNothing(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := setupTestStore(t, filepath.Join(blocked, "content"))

	_, err := env.store.Create(context.Background(), StoryInput{Title: "T", Content: "body"})
	if !errors.Is(err, ErrBlobWrite) {
		t.Fatalf("expected ErrBlobWrite, got %v", err)
	}
	if !errors.Is(err, content.ErrWrite) {
		t.Fatalf("expected content.ErrWrite in chain, got %v", err)
	}
	if _, err := os.Stat(env.indexPath); !os.IsNotExist(err) {
		t.Fatalf("index should not be written, stat err: %v", err)
	}
	if env.pub.count() != 0 {
		t.Fatalf("failed create should not republish")
	}
}

func TestCreateIgnoresRenderFailure(t *testing.T) {
	env := setupTestStore(t, "")
	env.pub.err = errors.New("disk full")

	s, err := env.store.Create(context.Background(), StoryInput{Title: "T", Content: "body"})
	if err != nil {
		t.Fatalf("render failures must not fail the mutation: %v", err)
	}
	if got, err := env.store.Get(context.Background(), s.ID); err != nil || got.Content != "body" {
		t.Fatalf("story should be persisted: %+v %v", got, err)
	}
}

func TestGetNotFound(t *testing.T) {
	env := setupTestStore(t, "")
	if _, err := env.store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.store.Get(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty id, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()
	created, err := env.store.Create(ctx, StoryInput{Title: "T", Content: "old body", Date: "2024-01-01", Published: story.PublishedFalse})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := env.store.Update(ctx, created.ID, StoryInput{Title: " New ", Content: "new body"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "New" || updated.Content != "new body" || updated.Excerpt != "new body" {
		t.Errorf("fields not updated: %+v", updated)
	}
	if updated.Date != "2024-01-01" {
		t.Errorf("blank date should keep the stored date, got %q", updated.Date)
	}
	if updated.Published != story.PublishedFalse {
		t.Errorf("unset published should keep the stored flag, got %v", updated.Published)
	}
	if updated.ContentRef != created.ContentRef {
		t.Errorf("blob should be overwritten in place")
	}
	if got := readText(t, filepath.Join(env.contentDir, created.ContentRef)); got != "new body" {
		t.Errorf("blob = %q", got)
	}

	republished, err := env.store.Update(ctx, created.ID, StoryInput{Title: "New", Content: "new body", Published: story.PublishedTrue})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if republished.Published != story.PublishedTrue {
		t.Errorf("supplied published flag should be applied")
	}
}

func TestUpdateErrors(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()

	if _, err := env.store.Update(ctx, "missing", StoryInput{}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("validation should run before lookup, got %v", err)
	}
	if _, err := env.store.Update(ctx, "missing", StoryInput{Title: "T", Content: "c"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMigratesLegacyRecord(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()
	writeIndex(t, env.indexPath, `[{"id":"old1","title":"Old","excerpt":"e","date":"2020-01-01","content":"legacy body"}]`)

	updated, err := env.store.Update(ctx, "old1", StoryInput{Title: "Old", Content: "revised body"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ContentRef != "old1.md" {
		t.Fatalf("legacy record should gain a contentRef, got %q", updated.ContentRef)
	}
	if got := readText(t, filepath.Join(env.contentDir, "old1.md")); got != "revised body" {
		t.Errorf("blob = %q", got)
	}
	if doc := readText(t, env.indexPath); strings.Contains(doc, `"content":`) {
		t.Errorf("index must not contain bodies after migration: %s", doc)
	}
}

func TestDelete(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()
	a, _ := env.store.Create(ctx, StoryInput{Title: "A", Content: "a"})
	b, _ := env.store.Create(ctx, StoryInput{Title: "B", Content: "b"})

	if err := env.store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list := env.store.List(ctx)
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
	if _, err := os.Stat(filepath.Join(env.contentDir, a.ContentRef)); !os.IsNotExist(err) {
		t.Errorf("blob should be removed, stat err: %v", err)
	}
	if last := env.pub.last(); len(last) != 1 || last[0].ID != b.ID {
		t.Errorf("republish should see the remaining story, got %+v", last)
	}
	if err := env.store.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()
	writeIndex(t, env.indexPath, `[
		{"id":"old1","title":"Old","excerpt":"e","date":"2020-01-01","content":"legacy body"},
		{"title":"No id","excerpt":"","date":"2020-01-02","content":"orphan body"}
	]`)

	n, err := env.store.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if n != 2 {
		t.Fatalf("migrated %d stories, want 2", n)
	}
	list := env.store.List(ctx)
	if len(list) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	for _, s := range list {
		if s.ID == "" || s.ContentRef != story.BlobName(s.ID) || s.Content == "" {
			t.Errorf("story not migrated: %+v", s)
		}
	}
	if n, err := env.store.Migrate(ctx); err != nil || n != 0 {
		t.Fatalf("second migrate = %d, %v; want 0, nil", n, err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.store.Create(ctx, StoryInput{Title: fmt.Sprintf("Story %d", i), Content: "body"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list := env.store.List(ctx)
	if len(list) != n {
		t.Fatalf("expected %d stories, got %d", n, len(list))
	}
	seen := map[string]bool{}
	for _, s := range list {
		if seen[s.ID] {
			t.Fatalf("duplicate id %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestStoreRepublishesSite(t *testing.T) {
	dir := t.TempDir()
	log := quietLogger()
	backend, err := content.NewFS(filepath.Join(dir, "content"))
	if err != nil {
		t.Fatal(err)
	}
	blobs := content.New(backend, log)
	idx := index.New(filepath.Join(dir, "stories.json"), blobs, index.WithLogger(log))
	out := filepath.Join(dir, "public")
	pub := publish.New(out, views.Site{Name: "Shelf"}, publish.WithLogger(log))
	s := NewStore(idx, blobs, pub, WithStoreLogger(log))
	ctx := context.Background()

	created, err := s.Create(ctx, StoryInput{Title: "Harbour", Content: "Gulls circled."})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	page := filepath.Join(out, "stories", created.ID+".html")
	if !strings.Contains(readText(t, page), "Gulls circled.") {
		t.Fatalf("story page missing body")
	}

	if _, err := s.Update(ctx, created.ID, StoryInput{Title: "Harbour", Content: "Gulls circled.", Published: story.PublishedFalse}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := os.Stat(page); !os.IsNotExist(err) {
		t.Fatalf("unpublished story page should be removed, stat err: %v", err)
	}
	if strings.Contains(readText(t, filepath.Join(out, "index.html")), "Harbour") {
		t.Fatalf("listing should exclude unpublished stories")
	}
	if err := s.Republish(ctx); err != nil {
		t.Fatalf("Republish: %v", err)
	}
}

func TestUpdateTitleOnlyKeepsBlobAndDate(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()
	created, err := env.store.Create(ctx, StoryInput{Title: "Hi", Content: "Hello world", Date: "2022-02-02"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Excerpt != "Hello world" {
		t.Fatalf("excerpt = %q", created.Excerpt)
	}

	if _, err := env.store.Update(ctx, created.ID, StoryInput{Title: "Hello", Content: "Hello world"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := readText(t, filepath.Join(env.contentDir, created.ContentRef)); got != "Hello world" {
		t.Errorf("blob = %q", got)
	}
	got, err := env.store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Hello" || got.Date != "2022-02-02" {
		t.Errorf("unexpected story after update: %+v", got)
	}
}

func TestCreateAndUpdateTrimContent(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()

	created, err := env.store.Create(ctx, StoryInput{Title: "  Hi ", Content: "\n\n   Hello world  \n"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "Hi" || created.Content != "Hello world" || created.Excerpt != "Hello world" {
		t.Fatalf("create should store trimmed text, got %+v", created)
	}
	if got := readText(t, filepath.Join(env.contentDir, created.ContentRef)); got != "Hello world" {
		t.Errorf("blob = %q, want trimmed body", got)
	}

	updated, err := env.store.Update(ctx, created.ID, StoryInput{Title: "Hi", Content: "  Goodbye world\n"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Content != "Goodbye world" || updated.Excerpt != "Goodbye world" {
		t.Fatalf("update should store trimmed text, got %+v", updated)
	}
	if got := readText(t, filepath.Join(env.contentDir, created.ContentRef)); got != "Goodbye world" {
		t.Errorf("blob = %q, want trimmed body", got)
	}
}

// snapshotFiles reads every file under dir, keyed by path relative to dir.
func snapshotFiles(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[rel] = readText(t, path)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return files
}

func TestUpdateMissingLeavesStateUnchanged(t *testing.T) {
	env := setupTestStore(t, "")
	ctx := context.Background()
	if _, err := env.store.Create(ctx, StoryInput{Title: "Kept", Content: "kept body"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	indexBefore := readText(t, env.indexPath)
	blobsBefore := snapshotFiles(t, env.contentDir)
	renders := env.pub.count()

	if _, err := env.store.Update(ctx, "missing", StoryInput{Title: "T", Content: "new body"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if got := readText(t, env.indexPath); got != indexBefore {
		t.Errorf("index changed:\nbefore %s\nafter  %s", indexBefore, got)
	}
	blobsAfter := snapshotFiles(t, env.contentDir)
	if len(blobsAfter) != len(blobsBefore) {
		t.Fatalf("blob set changed: before %v, after %v", blobsBefore, blobsAfter)
	}
	for name, body := range blobsBefore {
		if blobsAfter[name] != body {
			t.Errorf("blob %s changed: %q -> %q", name, body, blobsAfter[name])
		}
	}
	if env.pub.count() != renders {
		t.Errorf("failed update should not republish")
	}
}
