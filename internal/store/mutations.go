package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/models"
)

// CreateOrganization creates an organization and refreshes the list
func (s *Store) CreateOrganization(ctx context.Context, name, description string) (*models.Organization, error) {
	epoch := s.cache.Epoch()
	o, err := s.api.CreateOrganization(ctx, name, description)
	if err != nil {
		return nil, err
	}
	s.cache.PutOrganization(epoch, *o)
	s.refetch(ctx, api.OpCreateOrganization, "", "")
	return o, nil
}

// JoinOrganization redeems an invite code and refreshes the list
func (s *Store) JoinOrganization(ctx context.Context, code string) (*models.Organization, error) {
	epoch := s.cache.Epoch()
	o, err := s.api.JoinOrganization(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cache.PutOrganization(epoch, *o)
	s.refetch(ctx, api.OpJoinOrganization, "", "")
	return o, nil
}

// Invite creates an invite code for the active organization
func (s *Store) Invite(ctx context.Context, email string) (string, error) {
	orgID, err := s.orgID()
	if err != nil {
		return "", err
	}
	return s.api.InviteToOrganization(ctx, orgID, email)
}

// CreateProject creates a project in the active organization
func (s *Store) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	epoch := s.cache.Epoch()
	p, err := s.api.CreateProject(ctx, orgID, in)
	if err != nil {
		return nil, err
	}
	s.cache.MergeProject(epoch, *p)
	s.refetch(ctx, api.OpCreateProject, orgID, p.ID)
	return p, nil
}

// UpdateProject patches a project
func (s *Store) UpdateProject(ctx context.Context, id string, in models.ProjectInput) (*models.Project, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	epoch := s.cache.Epoch()
	p, err := s.api.UpdateProject(ctx, id, orgID, in)
	if err != nil {
		return nil, err
	}
	s.cache.MergeProject(epoch, *p)
	s.refetch(ctx, api.OpUpdateProject, orgID, id)
	return p, nil
}

// CreateTask adds a task to a project and refetches the project
func (s *Store) CreateTask(ctx context.Context, projectID string, in models.TaskInput) (*models.Task, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	epoch := s.cache.Epoch()
	t, err := s.api.CreateTask(ctx, projectID, orgID, in)
	if err != nil {
		return nil, err
	}
	s.cache.MergeTask(epoch, projectID, *t)
	s.refetch(ctx, api.OpCreateTask, orgID, projectID)
	return t, nil
}

// UpdateTask patches a task without an optimistic overlay. When the parent
// project is not cached every project detail result is marked stale.
func (s *Store) UpdateTask(ctx context.Context, taskID string, in models.TaskInput) (*models.Task, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	projectID, _ := s.cache.TaskProject(taskID)

	epoch := s.cache.Epoch()
	t, err := s.api.UpdateTask(ctx, taskID, orgID, in)
	if err != nil {
		return nil, err
	}
	if projectID != "" {
		s.cache.MergeTask(epoch, projectID, *t)
	} else {
		s.cache.InvalidateProjectDetails()
	}
	s.refetch(ctx, api.OpUpdateTask, orgID, projectID)
	return t, nil
}

// Change is an optimistic mutation: Begin* has already applied it to the
// cache, Send issues the request and settles the overlay. Send runs once.
type Change struct {
	s         *Store
	op        string
	orgID     string
	projectID string
	epoch     uint64
	patch     *cache.Patch
	send      func(ctx context.Context, epoch uint64) error
	sent      bool
	comment   *models.Comment
}

// Patch exposes the cache overlay, for inspecting its state
func (c *Change) Patch() *cache.Patch { return c.patch }

// Comment returns the server's comment once a comment change was sent
func (c *Change) Comment() *models.Comment { return c.comment }

// Send performs the request. On failure the overlay is rolled back; in
// every case the parent project is refetched so the view converges to the
// server's value.
func (c *Change) Send(ctx context.Context) error {
	if c.sent {
		return cache.ErrSettled
	}
	c.sent = true

	err := c.send(ctx, c.epoch)
	if err != nil {
		if rbErr := c.patch.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Str("patch", c.patch.ID()).Msg("rollback failed")
		}
	} else if cmErr := c.patch.Commit(); cmErr != nil {
		log.Warn().Err(cmErr).Str("patch", c.patch.ID()).Msg("commit failed")
	}
	c.s.refetch(ctx, c.op, c.orgID, c.projectID)
	return err
}

// BeginTaskStatus shows status on a cached task immediately
func (s *Store) BeginTaskStatus(taskID string, status models.TaskStatus) (*Change, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("store: unknown task status %q", status)
	}
	projectID, ok := s.cache.TaskProject(taskID)
	if !ok {
		return nil, cache.ErrNotCached
	}

	in := models.TaskInput{Status: &status}
	epoch := s.cache.Epoch()
	patch, err := s.cache.BeginTaskPatch(taskID, in)
	if err != nil {
		return nil, err
	}
	return &Change{
		s:         s,
		op:        api.OpUpdateTask,
		orgID:     orgID,
		projectID: projectID,
		epoch:     epoch,
		patch:     patch,
		send: func(ctx context.Context, epoch uint64) error {
			t, err := s.api.UpdateTask(ctx, taskID, orgID, in)
			if err != nil {
				return err
			}
			s.cache.MergeTask(epoch, projectID, *t)
			return nil
		},
	}, nil
}

// SetTaskStatus is BeginTaskStatus followed by Send
func (s *Store) SetTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) error {
	ch, err := s.BeginTaskStatus(taskID, status)
	if err != nil {
		return err
	}
	return ch.Send(ctx)
}

// BeginComment shows a provisional comment at the top of a cached task
func (s *Store) BeginComment(taskID string, in models.CommentInput) (*Change, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	projectID, ok := s.cache.TaskProject(taskID)
	if !ok {
		return nil, cache.ErrNotCached
	}

	author := in.AuthorName
	if author == "" {
		author = "Anonymous"
	}
	epoch := s.cache.Epoch()
	patch, err := s.cache.BeginCommentInsert(taskID, models.Comment{
		Content:     in.Content,
		AuthorName:  author,
		AuthorEmail: in.AuthorEmail,
	})
	if err != nil {
		return nil, err
	}
	ch := &Change{
		s:         s,
		op:        api.OpAddTaskComment,
		orgID:     orgID,
		projectID: projectID,
		epoch:     epoch,
		patch:     patch,
	}
	ch.send = func(ctx context.Context, epoch uint64) error {
		c, err := s.api.AddTaskComment(ctx, taskID, orgID, in)
		if err != nil {
			return err
		}
		s.cache.MergeComment(epoch, taskID, *c)
		ch.comment = c
		return nil
	}
	return ch, nil
}

// AddTaskComment is BeginComment followed by Send. Tasks that are not
// cached skip the provisional insert.
func (s *Store) AddTaskComment(ctx context.Context, taskID string, in models.CommentInput) (*models.Comment, error) {
	ch, err := s.BeginComment(taskID, in)
	if errors.Is(err, cache.ErrNotCached) {
		orgID, err := s.orgID()
		if err != nil {
			return nil, err
		}
		c, err := s.api.AddTaskComment(ctx, taskID, orgID, in)
		if err != nil {
			return nil, err
		}
		s.cache.InvalidateProjectDetails()
		s.refetch(ctx, api.OpAddTaskComment, orgID, "")
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := ch.Send(ctx); err != nil {
		return nil, err
	}
	return ch.comment, nil
}
