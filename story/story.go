// Package story defines the story record shared by the index, the store and
// the publisher.
package story

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar form stories are dated with.
const DateLayout = "2006-01-02"

// Story is a story's metadata joined with its body text. Content is never
// written to the index; it is attached after the blob is read.
type Story struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	ContentRef string    `json:"contentRef,omitempty"`
	Date       string    `json:"date"`
	Published  Published `json:"published"`
	Content    string    `json:"content"`
}

// IsPublished reports whether the story should get a public page.
func (s Story) IsPublished() bool {
	return s.Published.IsPublished()
}

// Published is a tri-state publication flag. Only an explicit False
// suppresses publication; Unset is treated as published.
type Published int8

const (
	PublishedUnset Published = iota
	PublishedTrue
	PublishedFalse
)

// PublishedFrom converts a boolean into a set flag.
func PublishedFrom(v bool) Published {
	if v {
		return PublishedTrue
	}
	return PublishedFalse
}

// IsSet reports whether a value was supplied.
func (p Published) IsSet() bool {
	return p == PublishedTrue || p == PublishedFalse
}

// IsPublished reports whether p allows publication.
func (p Published) IsPublished() bool {
	return p != PublishedFalse
}

func (p Published) String() string {
	switch p {
	case PublishedTrue:
		return "true"
	case PublishedFalse:
		return "false"
	default:
		return "unset"
	}
}

// MarshalJSON writes null for Unset.
func (p Published) MarshalJSON() ([]byte, error) {
	switch p {
	case PublishedTrue:
		return []byte("true"), nil
	case PublishedFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts booleans, null and strings. Strings other than
// "true"/"false" (any case) and values of other types decode to Unset
// rather than failing the whole record.
func (p *Published) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*p = PublishedTrue
	case bytes.Equal(data, []byte("false")):
		*p = PublishedFalse
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "false":
			*p = PublishedFalse
		case "true":
			*p = PublishedTrue
		default:
			*p = PublishedUnset
		}
	default:
		*p = PublishedUnset
	}
	return nil
}

// NewID returns a fresh opaque story id: a random UUID as 32 hex digits.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// BlobName is the content blob key for a story id.
func BlobName(id string) string {
	return id + ".md"
}

// Today formats now as a UTC calendar date.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}
