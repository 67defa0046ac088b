package forms

import (
	"net/url"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/tgienger/phub/internal/validation"
)

// CopiedFor is how long a "Copied!" acknowledgement stays visible
const CopiedFor = 2 * time.Second

// CopyTarget names what was copied
type CopyTarget int

const (
	CopyCode CopyTarget = iota
	CopyLink
)

// InviteOption configures an InviteForm
type InviteOption func(*InviteForm)

// WithInviteClock replaces time.Now
func WithInviteClock(now func() time.Time) InviteOption {
	return func(f *InviteForm) { f.now = now }
}

// WithClipboard replaces the system clipboard
func WithClipboard(write func(string) error) InviteOption {
	return func(f *InviteForm) { f.write = write }
}

// InviteForm requests an invite code for an email and shares it
type InviteForm struct {
	Form
	Email string

	base   string
	code   string
	copied map[CopyTarget]time.Time
	now    func() time.Time
	write  func(string) error
}

// NewInviteForm builds join links under base, e.g. https://app.example.com
func NewInviteForm(base string, opts ...InviteOption) *InviteForm {
	f := &InviteForm{
		base:   strings.TrimRight(base, "/"),
		copied: make(map[CopyTarget]time.Time),
		now:    time.Now,
		write:  clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Begin validates the email and starts a submission
func (f *InviteForm) Begin() bool {
	if f.code != "" {
		return false
	}
	return f.start(validation.ValidateInviteEmail(f.Email))
}

// EmailValue is the trimmed address
func (f *InviteForm) EmailValue() string { return strings.TrimSpace(f.Email) }

// Finish settles the submission with the issued code
func (f *InviteForm) Finish(code string, err error) {
	if f.finish(err) {
		f.code = code
	}
}

// Code is the issued invite code, "" before success
func (f *InviteForm) Code() string { return f.code }

// Link is the shareable join URL for the issued code
func (f *InviteForm) Link() string {
	if f.code == "" {
		return ""
	}
	return f.base + "/join?code=" + url.QueryEscape(f.code)
}

// Copy writes the code or link to the clipboard and records the
// acknowledgement
func (f *InviteForm) Copy(target CopyTarget) error {
	text := f.code
	if target == CopyLink {
		text = f.Link()
	}
	if text == "" {
		return nil
	}
	if err := f.write(text); err != nil {
		return err
	}
	f.copied[target] = f.now()
	return nil
}

// Copied reports whether target was copied within the last CopiedFor
func (f *InviteForm) Copied(target CopyTarget) bool {
	at, ok := f.copied[target]
	if !ok {
		return false
	}
	if f.now().Sub(at) >= CopiedFor {
		delete(f.copied, target)
		return false
	}
	return true
}

// Another clears the issued code so a new invite can be sent
func (f *InviteForm) Another() {
	f.Email = ""
	f.code = ""
	clear(f.copied)
	f.Reopen()
}
