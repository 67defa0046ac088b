package forms

import (
	"strings"

	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// JoinForm redeems an invite code, typed in or handed over at startup
type JoinForm struct {
	Form
	Code string

	pending string
	fired   bool
	joined  *models.Organization
}

// NewJoinForm prepares an automatic submission of pending, if non-empty
func NewJoinForm(pending string) *JoinForm {
	pending = strings.TrimSpace(pending)
	return &JoinForm{Code: pending, pending: pending}
}

// Pending reports whether an automatic submission is still waiting
func (f *JoinForm) Pending() bool { return f.pending != "" && !f.fired }

// AutoSubmit starts the pending submission once the user is signed in. It
// returns true at most once over the form's lifetime.
func (f *JoinForm) AutoSubmit(authenticated bool) bool {
	if !authenticated || !f.Pending() {
		return false
	}
	f.fired = true
	f.Code = f.pending
	return f.Begin()
}

// Begin validates the code and starts a submission
func (f *JoinForm) Begin() bool {
	return f.start(validation.ValidateInviteCode(f.Code))
}

// CodeValue is the trimmed code
func (f *JoinForm) CodeValue() string { return strings.TrimSpace(f.Code) }

// Finish settles the submission with the joined organization
func (f *JoinForm) Finish(org *models.Organization, err error) {
	if f.finish(err) {
		f.joined = org
	}
}

// Joined is the organization joined by the last successful submission
func (f *JoinForm) Joined() *models.Organization { return f.joined }

// SuccessMessage is shown after joining
func (f *JoinForm) SuccessMessage() string {
	if f.joined == nil {
		return ""
	}
	return "Successfully joined " + f.joined.Name + "!"
}
