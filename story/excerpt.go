package story

import (
	"strings"
	"time"
)

// ExcerptLength is the number of characters kept by a derived excerpt.
const ExcerptLength = 140

// Ellipsis marks a truncated excerpt.
const Ellipsis = "…"

// Excerpt returns the first ExcerptLength characters of content, followed by
// Ellipsis when content is longer.
func Excerpt(content string) string {
	r := []rune(content)
	if len(r) <= ExcerptLength {
		return content
	}
	return string(r[:ExcerptLength]) + Ellipsis
}

// ExcerptOr returns the trimmed excerpt, or one derived from content when the
// supplied excerpt is blank.
func ExcerptOr(excerpt, content string) string {
	if e := strings.TrimSpace(excerpt); e != "" {
		return e
	}
	return Excerpt(content)
}

// CompactDateLayout is the compact calendar form older stories carry.
const CompactDateLayout = "20060102"

// ParseDate parses a calendar date in DateLayout or CompactDateLayout.
func ParseDate(date string) (time.Time, bool) {
	d := strings.TrimSpace(date)
	for _, layout := range []string{DateLayout, CompactDateLayout} {
		if t, err := time.Parse(layout, d); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LongDate reformats a calendar date as "January 2, 2006". ok is false when
// date cannot be parsed, in which case date is returned unchanged.
func LongDate(date string) (string, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return date, false
	}
	return t.Format("January 2, 2006"), true
}
