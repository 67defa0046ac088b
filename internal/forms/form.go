// Package forms holds the state of every input form independently of how it
// is drawn: draft values, validation, and the single in-flight submission.
package forms

import (
	"github.com/tgienger/phub/internal/apperr"
)

// Form is the submit lifecycle shared by every form. A form is idle,
// submitting, or closed after a successful submission.
type Form struct {
	submitting bool
	closed     bool
	err        error
}

// start moves to submitting unless a submission is already running or the
// draft is invalid. A validation error is kept for display.
func (f *Form) start(invalid error) bool {
	if f.submitting {
		return false
	}
	if invalid != nil {
		f.err = invalid
		return false
	}
	f.err = nil
	f.submitting = true
	return true
}

// finish settles the running submission and reports whether it succeeded
func (f *Form) finish(err error) bool {
	f.submitting = false
	if err != nil {
		f.err = err
		return false
	}
	f.err = nil
	f.closed = true
	return true
}

// Submitting reports whether a submission is in flight
func (f *Form) Submitting() bool { return f.submitting }

// Closed reports whether the last submission succeeded
func (f *Form) Closed() bool { return f.closed }

// Err returns the inline error, nil when there is none
func (f *Form) Err() error { return f.err }

// Message returns the inline error text, "" when there is none
func (f *Form) Message() string { return apperr.UserMessage(f.err) }

// Reopen makes a closed form editable again
func (f *Form) Reopen() {
	f.closed = false
	f.err = nil
}
