package storypub

import "github.com/eringen/storypub/story"

// StoryInput carries the caller-supplied fields of a create or update.
// Blank Excerpt and Date and an unset Published mean "not supplied".
type StoryInput struct {
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Excerpt   string          `json:"excerpt"`
	Date      string          `json:"date"`
	Published story.Published `json:"published"`
}
