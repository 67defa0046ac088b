package validation

import (
	"net/mail"
	"strings"
	"time"

	"github.com/tgienger/phub/internal/models"
)

// DateLayout is the wire format for due dates
const DateLayout = "2006-01-02"

// Messages shown inline when a required field is empty.
const (
	MsgProjectNameRequired = "Project name is required"
	MsgTaskTitleRequired   = "Task title is required"
	MsgCommentRequired     = "Comment cannot be empty"
	MsgOrgNameRequired     = "Organization name is required"
	MsgInviteCodeRequired  = "Invite code is required"
	MsgEmailRequired       = "Email is required"
	MsgUsernameRequired    = "Username is required"
	MsgPasswordRequired    = "Password is required"
)

// IsNonEmptyString checks if a string is not empty after trimming whitespace
func IsNonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidDate accepts empty strings (no due date) and YYYY-MM-DD
func IsValidDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ProjectDraft is the user-editable part of a project
type ProjectDraft struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	DueDate     string
}

// ValidateProject checks a project draft before CreateProject/UpdateProject
func ValidateProject(d ProjectDraft) error {
	ve := NewValidationError()
	if !IsNonEmptyString(d.Name) {
		ve.AddRequiredError("name", MsgProjectNameRequired)
	}
	if d.Status != "" && !d.Status.Valid() {
		ve.AddInvalidValueError("status", d.Status)
	}
	if !IsValidDate(d.DueDate) {
		ve.AddInvalidFormatError("dueDate", d.DueDate, "a date (YYYY-MM-DD)")
	}
	return ve.orNil()
}

// TaskDraft is the user-editable part of a task
type TaskDraft struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     string
}

// ValidateTask checks a task draft before CreateTask/UpdateTask
func ValidateTask(d TaskDraft) error {
	ve := NewValidationError()
	if !IsNonEmptyString(d.Title) {
		ve.AddRequiredError("title", MsgTaskTitleRequired)
	}
	if d.Status != "" && !d.Status.Valid() {
		ve.AddInvalidValueError("status", d.Status)
	}
	if d.Priority != "" && !d.Priority.Valid() {
		ve.AddInvalidValueError("priority", d.Priority)
	}
	if !IsValidDate(d.DueDate) {
		ve.AddInvalidFormatError("dueDate", d.DueDate, "a date (YYYY-MM-DD)")
	}
	return ve.orNil()
}

// ValidateComment requires non-blank content
func ValidateComment(content string) error {
	ve := NewValidationError()
	if !IsNonEmptyString(content) {
		ve.AddRequiredError("content", MsgCommentRequired)
	}
	return ve.orNil()
}

// ValidateOrganizationName requires a name for CreateOrganization
func ValidateOrganizationName(name string) error {
	ve := NewValidationError()
	if !IsNonEmptyString(name) {
		ve.AddRequiredError("name", MsgOrgNameRequired)
	}
	return ve.orNil()
}

// ValidateInviteCode requires a code for JoinOrganization
func ValidateInviteCode(code string) error {
	ve := NewValidationError()
	if !IsNonEmptyString(code) {
		ve.AddRequiredError("inviteCode", MsgInviteCodeRequired)
	}
	return ve.orNil()
}

// ValidateInviteEmail requires a well-formed address for InviteToOrganization
func ValidateInviteEmail(email string) error {
	ve := NewValidationError()
	email = strings.TrimSpace(email)
	if email == "" {
		ve.AddRequiredError("email", MsgEmailRequired)
		return ve
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		ve.AddInvalidFormatError("email", email, "a valid email address")
	}
	return ve.orNil()
}

// ValidateCredentials requires both login fields
func ValidateCredentials(username, password string) error {
	ve := NewValidationError()
	if !IsNonEmptyString(username) {
		ve.AddRequiredError("username", MsgUsernameRequired)
	}
	if password == "" {
		ve.AddRequiredError("password", MsgPasswordRequired)
	}
	return ve.orNil()
}
