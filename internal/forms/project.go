package forms

import (
	"strings"

	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// ProjectForm creates a project or edits an existing one
type ProjectForm struct {
	Form
	Draft validation.ProjectDraft
	id    string
}

// NewProjectForm starts a create form with default values
func NewProjectForm() *ProjectForm {
	return &ProjectForm{Draft: validation.ProjectDraft{Status: models.ProjectPlanning}}
}

// EditProjectForm starts an edit form seeded from p
func EditProjectForm(p models.Project) *ProjectForm {
	return &ProjectForm{
		id: p.ID,
		Draft: validation.ProjectDraft{
			Name:        p.Name,
			Description: p.Description,
			Status:      p.Status,
			DueDate:     p.DueDate,
		},
	}
}

// Editing reports whether the form edits an existing project
func (f *ProjectForm) Editing() bool { return f.id != "" }

// ID returns the project being edited
func (f *ProjectForm) ID() string { return f.id }

// Title is the heading for the form
func (f *ProjectForm) Title() string {
	if f.Editing() {
		return "Edit Project"
	}
	return "New Project"
}

// Begin validates the draft and starts a submission
func (f *ProjectForm) Begin() bool {
	return f.start(validation.ValidateProject(f.Draft))
}

// Input converts the draft to a mutation input. Edits send every field so
// a cleared due date is removed server-side.
func (f *ProjectForm) Input() models.ProjectInput {
	in := models.ProjectInput{
		Name:        models.Ptr(strings.TrimSpace(f.Draft.Name)),
		Description: models.Ptr(strings.TrimSpace(f.Draft.Description)),
	}
	if f.Draft.Status != "" {
		in.Status = models.Ptr(f.Draft.Status)
	}
	due := strings.TrimSpace(f.Draft.DueDate)
	if due != "" || f.Editing() {
		in.DueDate = models.Ptr(due)
	}
	return in
}

// Finish settles the submission. Success resets a create form.
func (f *ProjectForm) Finish(err error) {
	if f.finish(err) && !f.Editing() {
		f.Draft = NewProjectForm().Draft
	}
}
