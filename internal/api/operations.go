package api

import (
	"context"

	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/models"
)

// LoginResult is a successful Login exchange
type LoginResult struct {
	SessionKey string
	User       *models.User
}

// Login exchanges credentials for a session key
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var data struct {
		Login struct {
			payload
			SessionKey string       `json:"sessionKey"`
			User       *models.User `json:"user"`
		} `json:"login"`
	}
	vars := map[string]interface{}{"username": username, "password": password}
	if err := c.do(ctx, OpLogin, loginDoc, vars, &data); err != nil {
		return nil, err
	}
	if err := data.Login.check(OpLogin, "Invalid credentials"); err != nil {
		// A rejected login is an ordinary form error, not an expired session
		if apperr.IsAuth(err) {
			return nil, apperr.NewMutationError(OpLogin, "Invalid credentials")
		}
		return nil, err
	}
	return &LoginResult{SessionKey: data.Login.SessionKey, User: data.Login.User}, nil
}

// Logout ends the session server-side
func (c *Client) Logout(ctx context.Context) error {
	var data struct {
		Logout struct {
			Success bool `json:"success"`
		} `json:"logout"`
	}
	return c.do(ctx, OpLogout, logoutDoc, nil, &data)
}

// Me returns the current user, or nil when the session is anonymous
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var data struct {
		Me *models.User `json:"me"`
	}
	if err := c.do(ctx, OpMe, meDoc, nil, &data); err != nil {
		return nil, err
	}
	return data.Me, nil
}

// Organizations lists the organizations visible to the session
func (c *Client) Organizations(ctx context.Context) ([]models.Organization, error) {
	var data struct {
		Organizations []models.Organization `json:"organizations"`
	}
	if err := c.do(ctx, OpGetOrganizations, organizationsDoc, nil, &data); err != nil {
		return nil, err
	}
	if data.Organizations == nil {
		return []models.Organization{}, nil
	}
	return data.Organizations, nil
}

// CreateOrganization creates an organization owned by the current user
func (c *Client) CreateOrganization(ctx context.Context, name, description string) (*models.Organization, error) {
	var data struct {
		CreateOrganization struct {
			payload
			Organization *models.Organization `json:"organization"`
		} `json:"createOrganization"`
	}
	vars := map[string]interface{}{"name": name, "description": description}
	if err := c.do(ctx, OpCreateOrganization, createOrganizationDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.CreateOrganization
	if err := res.check(OpCreateOrganization, "Failed to create organization"); err != nil {
		return nil, err
	}
	return entity(OpCreateOrganization, res.Organization)
}

// JoinOrganization redeems an invite code
func (c *Client) JoinOrganization(ctx context.Context, inviteCode string) (*models.Organization, error) {
	var data struct {
		JoinOrganization struct {
			payload
			Organization *models.Organization `json:"organization"`
		} `json:"joinOrganization"`
	}
	vars := map[string]interface{}{"inviteCode": inviteCode}
	if err := c.do(ctx, OpJoinOrganization, joinOrganizationDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.JoinOrganization
	if err := res.check(OpJoinOrganization, "Failed to join organization"); err != nil {
		return nil, err
	}
	return entity(OpJoinOrganization, res.Organization)
}

// InviteToOrganization creates a single-use invite code for email
func (c *Client) InviteToOrganization(ctx context.Context, organizationID, email string) (string, error) {
	var data struct {
		Invite struct {
			payload
			InviteCode string `json:"inviteCode"`
		} `json:"inviteToOrganization"`
	}
	vars := map[string]interface{}{"organizationId": organizationID, "email": email}
	if err := c.do(ctx, OpInviteToOrg, inviteDoc, vars, &data); err != nil {
		return "", err
	}
	if err := data.Invite.check(OpInviteToOrg, "Failed to create invite"); err != nil {
		return "", err
	}
	return data.Invite.InviteCode, nil
}

// Projects lists an organization's projects with statistics
func (c *Client) Projects(ctx context.Context, organizationID string) ([]models.Project, error) {
	var data struct {
		Projects []models.Project `json:"projects"`
	}
	vars := map[string]interface{}{"organizationId": organizationID}
	if err := c.do(ctx, OpGetProjects, projectsDoc, vars, &data); err != nil {
		return nil, err
	}
	if data.Projects == nil {
		return []models.Project{}, nil
	}
	return data.Projects, nil
}

// Project fetches one project with tasks, comments and statistics
func (c *Client) Project(ctx context.Context, id, organizationID string) (*models.Project, error) {
	var data struct {
		Project *models.Project `json:"project"`
	}
	vars := map[string]interface{}{"id": id, "organizationId": organizationID}
	if err := c.do(ctx, OpGetProject, projectDoc, vars, &data); err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, apperr.NewNotFoundError("project", id)
	}
	if data.Project.Tasks == nil {
		data.Project.Tasks = []models.Task{}
	}
	return data.Project, nil
}

// CreateProject creates a project in an organization
func (c *Client) CreateProject(ctx context.Context, organizationID string, in models.ProjectInput) (*models.Project, error) {
	var data struct {
		CreateProject struct {
			payload
			Project *models.Project `json:"project"`
		} `json:"createProject"`
	}
	vars := map[string]interface{}{"organizationId": organizationID, "input": in}
	if err := c.do(ctx, OpCreateProject, createProjectDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.CreateProject
	if err := res.check(OpCreateProject, "Failed to create project"); err != nil {
		return nil, err
	}
	return entity(OpCreateProject, res.Project)
}

// UpdateProject patches the non-nil fields of in
func (c *Client) UpdateProject(ctx context.Context, id, organizationID string, in models.ProjectInput) (*models.Project, error) {
	var data struct {
		UpdateProject struct {
			payload
			Project *models.Project `json:"project"`
		} `json:"updateProject"`
	}
	vars := map[string]interface{}{"id": id, "organizationId": organizationID, "input": in}
	if err := c.do(ctx, OpUpdateProject, updateProjectDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.UpdateProject
	if err := res.check(OpUpdateProject, "Failed to update project"); err != nil {
		return nil, err
	}
	return entity(OpUpdateProject, res.Project)
}

// CreateTask adds a task to a project
func (c *Client) CreateTask(ctx context.Context, projectID, organizationID string, in models.TaskInput) (*models.Task, error) {
	var data struct {
		CreateTask struct {
			payload
			Task *models.Task `json:"task"`
		} `json:"createTask"`
	}
	vars := map[string]interface{}{"projectId": projectID, "organizationId": organizationID, "input": in}
	if err := c.do(ctx, OpCreateTask, createTaskDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.CreateTask
	if err := res.check(OpCreateTask, "Failed to create task"); err != nil {
		return nil, err
	}
	return entity(OpCreateTask, res.Task)
}

// UpdateTask patches the non-nil fields of in
func (c *Client) UpdateTask(ctx context.Context, id, organizationID string, in models.TaskInput) (*models.Task, error) {
	var data struct {
		UpdateTask struct {
			payload
			Task *models.Task `json:"task"`
		} `json:"updateTask"`
	}
	vars := map[string]interface{}{"id": id, "organizationId": organizationID, "input": in}
	if err := c.do(ctx, OpUpdateTask, updateTaskDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.UpdateTask
	if err := res.check(OpUpdateTask, "Failed to update task"); err != nil {
		return nil, err
	}
	return entity(OpUpdateTask, res.Task)
}

// AddTaskComment adds a comment to a task
func (c *Client) AddTaskComment(ctx context.Context, taskID, organizationID string, in models.CommentInput) (*models.Comment, error) {
	var data struct {
		AddTaskComment struct {
			payload
			Comment *models.Comment `json:"comment"`
		} `json:"addTaskComment"`
	}
	vars := map[string]interface{}{"taskId": taskID, "organizationId": organizationID, "input": in}
	if err := c.do(ctx, OpAddTaskComment, addCommentDoc, vars, &data); err != nil {
		return nil, err
	}
	res := data.AddTaskComment
	if err := res.check(OpAddTaskComment, "Failed to add comment"); err != nil {
		return nil, err
	}
	return entity(OpAddTaskComment, res.Comment)
}
