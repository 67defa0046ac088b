package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/phub/internal/models"
)

func TestRequiredFieldMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"project", ValidateProject(ProjectDraft{Name: "   "}), MsgProjectNameRequired},
		{"task", ValidateTask(TaskDraft{Title: ""}), MsgTaskTitleRequired},
		{"comment", ValidateComment("\n\t"), MsgCommentRequired},
		{"organization", ValidateOrganizationName(""), MsgOrgNameRequired},
		{"invite code", ValidateInviteCode(" "), MsgInviteCodeRequired},
		{"email", ValidateInviteEmail(""), MsgEmailRequired},
		{"username", ValidateCredentials("", "secret"), MsgUsernameRequired},
		{"password", ValidateCredentials("ada", ""), MsgPasswordRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, IsValidationError(tt.err))

			ve := tt.err.(*ValidationError)
			assert.Equal(t, tt.want, ve.FirstMessage())
			assert.Equal(t, ErrorTypeRequired, ve.Errors[0].Type)
		})
	}
}

func TestValidDraftsPass(t *testing.T) {
	assert.NoError(t, ValidateProject(ProjectDraft{Name: "Launch", Status: models.ProjectActive, DueDate: "2026-12-01"}))
	assert.NoError(t, ValidateTask(TaskDraft{Title: "Write changelog", Status: models.TaskTodo, Priority: models.PriorityMedium}))
	assert.NoError(t, ValidateComment("looks good"))
	assert.NoError(t, ValidateOrganizationName("Acme"))
	assert.NoError(t, ValidateInviteCode("abc123"))
	assert.NoError(t, ValidateInviteEmail("user@example.com"))
	assert.NoError(t, ValidateCredentials("ada", "pw"))
}

func TestValidateTaskRejectsBadValues(t *testing.T) {
	err := ValidateTask(TaskDraft{
		Title:    "ok",
		Status:   models.TaskStatus("LATER"),
		Priority: models.TaskPriority("MAYBE"),
		DueDate:  "next week",
	})
	require.Error(t, err)

	ve := err.(*ValidationError)
	assert.Len(t, ve.Errors, 3)

	fe, ok := ve.Field("status")
	assert.True(t, ok)
	assert.Equal(t, "Invalid status: LATER", fe.Message)

	fe, ok = ve.Field("dueDate")
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeInvalidFormat, fe.Type)
	assert.Contains(t, ve.Error(), "multiple validation errors")
}

func TestValidateInviteEmailFormat(t *testing.T) {
	err := ValidateInviteEmail("not-an-email")
	require.Error(t, err)

	fe, ok := err.(*ValidationError).Field("email")
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeInvalidFormat, fe.Type)
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate(""))
	assert.True(t, IsValidDate("2026-02-28"))
	assert.False(t, IsValidDate("2026-02-30"))
	assert.False(t, IsValidDate("02/03/2026"))
}
