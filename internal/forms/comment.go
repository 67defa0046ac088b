package forms

import (
	"strings"

	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// CommentForm adds comments to one task. It stays usable after each success.
type CommentForm struct {
	Form
	TaskID     string
	Content    string
	AuthorName string
}

// NewCommentForm starts an empty comment for taskID
func NewCommentForm(taskID string) *CommentForm {
	return &CommentForm{TaskID: taskID}
}

// Begin validates the content and starts a submission
func (f *CommentForm) Begin() bool {
	return f.start(validation.ValidateComment(f.Content))
}

// Input converts the draft to a mutation input
func (f *CommentForm) Input() models.CommentInput {
	return models.CommentInput{
		Content:    strings.TrimSpace(f.Content),
		AuthorName: strings.TrimSpace(f.AuthorName),
	}
}

// Finish settles the submission. Success clears the content, keeping the
// author name for the next comment.
func (f *CommentForm) Finish(err error) {
	if f.finish(err) {
		f.Content = ""
		f.closed = false
	}
}
