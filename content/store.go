package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store reads and writes story bodies through a Backend.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
}

// New wraps backend. A nil logger falls back to the logrus standard logger.
func New(backend Backend, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{backend: backend, log: log.WithField("component", "content")}
}

// Write stores text under name, overwriting any existing blob. Every
// failure wraps ErrWrite.
func (s *Store) Write(ctx context.Context, name, text string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %w %q", ErrWrite, ErrInvalidName, name)
	}
	if err := s.backend.Put(ctx, name, []byte(text)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, name, err)
	}
	return nil
}

// Read returns the blob's text, or "" when it is missing or unreadable.
// A missing body must never break a listing, so no error is returned.
func (s *Store) Read(ctx context.Context, name string) string {
	if !ValidName(name) {
		s.log.WithField("blob", name).Warn("refusing to read blob with invalid name")
		return ""
	}
	data, err := s.backend.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		s.log.WithField("blob", name).Debug("blob missing, using empty content")
		return ""
	}
	if err != nil {
		s.log.WithError(err).WithField("blob", name).Warn("blob unreadable, using empty content")
		return ""
	}
	return string(data)
}

// Remove deletes the blob if present. A missing blob is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("remove blob: %w %q", ErrInvalidName, name)
	}
	if err := s.backend.Delete(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}
