package forms

import "github.com/tgienger/phub/internal/validation"

// LoginForm collects credentials
type LoginForm struct {
	Form
	Username string
	Password string
}

// Begin validates both fields and starts a submission
func (f *LoginForm) Begin() bool {
	return f.start(validation.ValidateCredentials(f.Username, f.Password))
}

// Finish settles the submission. Success forgets the password.
func (f *LoginForm) Finish(err error) {
	if f.finish(err) {
		f.Password = ""
	}
}
