package forms

import (
	"strings"

	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// TaskForm creates a task in a project or edits an existing one
type TaskForm struct {
	Form
	Draft     validation.TaskDraft
	id        string
	projectID string
}

func defaultTaskDraft() validation.TaskDraft {
	return validation.TaskDraft{Status: models.TaskTodo, Priority: models.PriorityMedium}
}

// NewTaskForm starts a create form for projectID
func NewTaskForm(projectID string) *TaskForm {
	return &TaskForm{projectID: projectID, Draft: defaultTaskDraft()}
}

// EditTaskForm starts an edit form seeded from t
func EditTaskForm(projectID string, t models.Task) *TaskForm {
	return &TaskForm{
		id:        t.ID,
		projectID: projectID,
		Draft: validation.TaskDraft{
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			DueDate:     t.DueDate,
		},
	}
}

// Editing reports whether the form edits an existing task
func (f *TaskForm) Editing() bool { return f.id != "" }

// ID returns the task being edited
func (f *TaskForm) ID() string { return f.id }

// ProjectID returns the parent project
func (f *TaskForm) ProjectID() string { return f.projectID }

// Title is the heading for the form
func (f *TaskForm) Title() string {
	if f.Editing() {
		return "Edit Task"
	}
	return "New Task"
}

// Begin validates the draft and starts a submission
func (f *TaskForm) Begin() bool {
	return f.start(validation.ValidateTask(f.Draft))
}

// Input converts the draft to a mutation input
func (f *TaskForm) Input() models.TaskInput {
	in := models.TaskInput{
		Title:       models.Ptr(strings.TrimSpace(f.Draft.Title)),
		Description: models.Ptr(strings.TrimSpace(f.Draft.Description)),
	}
	if f.Draft.Status != "" {
		in.Status = models.Ptr(f.Draft.Status)
	}
	if f.Draft.Priority != "" {
		in.Priority = models.Ptr(f.Draft.Priority)
	}
	due := strings.TrimSpace(f.Draft.DueDate)
	if due != "" || f.Editing() {
		in.DueDate = models.Ptr(due)
	}
	return in
}

// Finish settles the submission. Success resets a create form.
func (f *TaskForm) Finish(err error) {
	if f.finish(err) && !f.Editing() {
		f.Draft = defaultTaskDraft()
	}
}
