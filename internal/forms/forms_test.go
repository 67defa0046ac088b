package forms

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

func TestProjectFormRequiresName(t *testing.T) {
	f := NewProjectForm()
	f.Draft.Name = "   "

	assert.False(t, f.Begin())
	assert.False(t, f.Submitting())
	assert.Equal(t, validation.MsgProjectNameRequired, f.Message())
}

func TestFormBlocksDoubleSubmit(t *testing.T) {
	f := NewProjectForm()
	f.Draft.Name = "Roadmap"

	require.True(t, f.Begin())
	assert.False(t, f.Begin(), "second submit while in flight")
	assert.True(t, f.Submitting())
}

func TestFormFailureStaysOpen(t *testing.T) {
	f := NewProjectForm()
	f.Draft.Name = "Roadmap"
	require.True(t, f.Begin())

	f.Finish(apperr.NewMutationError("createProject", "Organization not found"))

	assert.False(t, f.Closed())
	assert.False(t, f.Submitting())
	assert.Equal(t, "Organization not found", f.Message())
	assert.Equal(t, "Roadmap", f.Draft.Name, "draft kept for editing")
	assert.True(t, f.Begin(), "can retry")
}

func TestProjectFormSuccessResetsDraft(t *testing.T) {
	f := NewProjectForm()
	f.Draft.Name = "Roadmap"
	f.Draft.DueDate = "2026-01-31"
	require.True(t, f.Begin())

	f.Finish(nil)

	assert.True(t, f.Closed())
	assert.Empty(t, f.Draft.Name)
	assert.Empty(t, f.Draft.DueDate)
	assert.Equal(t, models.ProjectPlanning, f.Draft.Status)
	assert.Empty(t, f.Message())
}

func TestProjectFormInput(t *testing.T) {
	t.Run("create omits empty due date", func(t *testing.T) {
		f := NewProjectForm()
		f.Draft.Name = " Roadmap "
		in := f.Input()
		assert.Equal(t, "Roadmap", *in.Name)
		assert.Nil(t, in.DueDate)
		assert.Equal(t, models.ProjectPlanning, *in.Status)
	})

	t.Run("edit clears due date", func(t *testing.T) {
		f := EditProjectForm(models.Project{ID: "p1", Name: "Roadmap", Status: models.ProjectActive, DueDate: "2026-01-31"})
		assert.True(t, f.Editing())
		assert.Equal(t, "Edit Project", f.Title())
		f.Draft.DueDate = ""
		in := f.Input()
		require.NotNil(t, in.DueDate)
		assert.Empty(t, *in.DueDate)
		assert.Equal(t, models.ProjectActive, *in.Status)
	})
}

func TestTaskFormEditKeepsDraftAfterSuccess(t *testing.T) {
	task := models.Task{ID: "t1", Title: "Ship", Status: models.TaskInProgress, Priority: models.PriorityHigh}
	f := EditTaskForm("p1", task)
	assert.Equal(t, "p1", f.ProjectID())
	f.Draft.Title = "Ship it"
	require.True(t, f.Begin())

	f.Finish(nil)

	assert.True(t, f.Closed())
	assert.Equal(t, "Ship it", f.Draft.Title)
}

func TestTaskFormValidation(t *testing.T) {
	f := NewTaskForm("p1")
	assert.Equal(t, models.TaskTodo, f.Draft.Status)
	assert.Equal(t, models.PriorityMedium, f.Draft.Priority)

	assert.False(t, f.Begin())
	assert.Equal(t, validation.MsgTaskTitleRequired, f.Message())

	f.Draft.Title = "Write tests"
	f.Draft.DueDate = "31/01/2026"
	assert.False(t, f.Begin())
	assert.NotEmpty(t, f.Message())

	f.Draft.DueDate = "2026-01-31"
	require.True(t, f.Begin())
	in := f.Input()
	assert.Equal(t, "2026-01-31", *in.DueDate)
	f.Finish(nil)
	assert.Empty(t, f.Draft.Title)
}

func TestCommentFormStaysUsable(t *testing.T) {
	f := NewCommentForm("t1")
	assert.False(t, f.Begin())
	assert.Equal(t, validation.MsgCommentRequired, f.Message())

	f.Content = " Looks good "
	f.AuthorName = "Sam"
	require.True(t, f.Begin())
	assert.Equal(t, models.CommentInput{Content: "Looks good", AuthorName: "Sam"}, f.Input())

	f.Finish(nil)
	assert.False(t, f.Closed())
	assert.Empty(t, f.Content)
	assert.Equal(t, "Sam", f.AuthorName)
}

func TestLoginForm(t *testing.T) {
	f := &LoginForm{Username: "demo"}
	assert.False(t, f.Begin())
	assert.Equal(t, validation.MsgPasswordRequired, f.Message())

	f.Password = "wrong"
	require.True(t, f.Begin())
	f.Finish(apperr.NewMutationError("login", "Invalid credentials"))
	assert.Equal(t, "Invalid credentials", f.Message())
	assert.Equal(t, "wrong", f.Password)

	require.True(t, f.Begin())
	f.Finish(nil)
	assert.Empty(t, f.Password)
}

func TestOrganizationFormTabs(t *testing.T) {
	f := NewOrganizationForm()
	assert.False(t, f.Begin())
	assert.Equal(t, validation.MsgOrgNameRequired, f.Message())

	f.Toggle()
	assert.Equal(t, TabJoin, f.Tab)
	assert.Empty(t, f.Message(), "tab switch clears the error")
	assert.False(t, f.Begin())
	assert.Equal(t, validation.MsgInviteCodeRequired, f.Message())

	f.Code = " ABC123 "
	require.True(t, f.Begin())
	f.Toggle()
	assert.Equal(t, TabJoin, f.Tab, "tab locked while submitting")

	f.Finish(nil, apperr.NewMutationError("joinOrganization", "Invalid or expired invite code"))
	assert.Equal(t, "Invalid or expired invite code", f.Message())
	assert.Equal(t, "ABC123", f.CodeValue())

	require.True(t, f.Begin())
	f.Finish(&models.Organization{ID: "o1", Name: "Acme"}, nil)
	assert.True(t, f.Closed())
	assert.Equal(t, "Acme", f.Result().Name)
	assert.Empty(t, f.Code)
}

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestInviteFormFlow(t *testing.T) {
	clock := &manualClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	var clip []string
	f := NewInviteForm("https://hub.example.com/",
		WithInviteClock(clock.Now),
		WithClipboard(func(s string) error { clip = append(clip, s); return nil }),
	)

	f.Email = "not-an-email"
	assert.False(t, f.Begin())
	assert.NotEmpty(t, f.Message())

	f.Email = "sam@example.com"
	require.True(t, f.Begin())
	f.Finish("A1B2C3", nil)

	assert.Equal(t, "A1B2C3", f.Code())
	assert.Equal(t, "https://hub.example.com/join?code=A1B2C3", f.Link())
	assert.False(t, f.Begin(), "no resubmit until Another")

	require.NoError(t, f.Copy(CopyLink))
	assert.Equal(t, []string{f.Link()}, clip)
	assert.True(t, f.Copied(CopyLink))
	assert.False(t, f.Copied(CopyCode))

	clock.Advance(1999 * time.Millisecond)
	assert.True(t, f.Copied(CopyLink))
	clock.Advance(time.Millisecond)
	assert.False(t, f.Copied(CopyLink), "acknowledgement resets after two seconds")

	f.Another()
	assert.Empty(t, f.Code())
	assert.Empty(t, f.Email)
	assert.False(t, f.Closed())
	assert.Empty(t, f.Link())
}

func TestInviteFormCopyFailure(t *testing.T) {
	f := NewInviteForm("http://localhost:3000",
		WithClipboard(func(string) error { return errors.New("no clipboard") }))
	f.Email = "sam@example.com"
	require.True(t, f.Begin())
	f.Finish("XYZ", nil)

	assert.Error(t, f.Copy(CopyCode))
	assert.False(t, f.Copied(CopyCode))
}

func TestJoinFormAutoSubmitWaitsForAuth(t *testing.T) {
	f := NewJoinForm(" CODE42 ")
	assert.True(t, f.Pending())

	assert.False(t, f.AutoSubmit(false), "not yet signed in")
	assert.False(t, f.Submitting())
	assert.True(t, f.Pending())

	require.True(t, f.AutoSubmit(true))
	assert.True(t, f.Submitting())
	assert.Equal(t, "CODE42", f.CodeValue())
	assert.False(t, f.AutoSubmit(true), "fires once")

	f.Finish(nil, apperr.NewMutationError("joinOrganization", "Invalid or expired invite code"))
	assert.False(t, f.AutoSubmit(true), "never refires after failure")
	assert.Equal(t, "Invalid or expired invite code", f.Message())
}

func TestJoinFormManualEntry(t *testing.T) {
	f := NewJoinForm("")
	assert.False(t, f.Pending())
	assert.False(t, f.AutoSubmit(true))

	assert.False(t, f.Begin())
	f.Code = "CODE42"
	require.True(t, f.Begin())
	f.Finish(&models.Organization{Name: "Acme"}, nil)
	assert.Equal(t, "Successfully joined Acme!", f.SuccessMessage())
	assert.True(t, f.Closed())
}
