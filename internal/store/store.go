// Package store wires API queries and mutations to the normalized cache.
// Reads are served from the cache while fresh; every mutation names the
// query results it invalidates and refetches them.
package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/models"
)

var (
	// ErrNoOrganization is returned by organization-scoped calls when none is selected
	ErrNoOrganization = errors.New("store: no organization selected")
	// ErrDiscarded is returned when a response arrived after the cache was reset
	ErrDiscarded = errors.New("store: response discarded after session reset")
)

// API is the part of api.Client the store calls
type API interface {
	Organizations(ctx context.Context) ([]models.Organization, error)
	CreateOrganization(ctx context.Context, name, description string) (*models.Organization, error)
	JoinOrganization(ctx context.Context, inviteCode string) (*models.Organization, error)
	InviteToOrganization(ctx context.Context, organizationID, email string) (string, error)
	Projects(ctx context.Context, organizationID string) ([]models.Project, error)
	Project(ctx context.Context, id, organizationID string) (*models.Project, error)
	CreateProject(ctx context.Context, organizationID string, in models.ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id, organizationID string, in models.ProjectInput) (*models.Project, error)
	CreateTask(ctx context.Context, projectID, organizationID string, in models.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, id, organizationID string, in models.TaskInput) (*models.Task, error)
	AddTaskComment(ctx context.Context, taskID, organizationID string, in models.CommentInput) (*models.Comment, error)
}

// OrgSource yields the active organization at the moment of a call
type OrgSource interface {
	Current() string
}

// Store is shared by every view
type Store struct {
	api   API
	cache *cache.Cache
	orgs  OrgSource
}

// New creates a Store
func New(client API, c *cache.Cache, orgs OrgSource) *Store {
	return &Store{api: client, cache: c, orgs: orgs}
}

// Cache returns the underlying cache
func (s *Store) Cache() *cache.Cache { return s.cache }

func (s *Store) orgID() (string, error) {
	id := s.orgs.Current()
	if id == "" {
		return "", ErrNoOrganization
	}
	return id, nil
}

// Organizations returns the user's organizations, fetching when stale
func (s *Store) Organizations(ctx context.Context) ([]models.Organization, error) {
	if orgs, meta, ok := s.cache.Organizations(); ok && !meta.Stale {
		return orgs, nil
	}
	return s.ReloadOrganizations(ctx)
}

// ReloadOrganizations always fetches
func (s *Store) ReloadOrganizations(ctx context.Context) ([]models.Organization, error) {
	epoch := s.cache.Epoch()
	orgs, err := s.api.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	if !s.cache.PutOrganizations(epoch, orgs) {
		return nil, ErrDiscarded
	}
	cached, _, _ := s.cache.Organizations()
	return cached, nil
}

// Projects returns the active organization's projects, fetching when stale
func (s *Store) Projects(ctx context.Context) ([]models.Project, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	if projects, meta, ok := s.cache.Projects(orgID); ok && !meta.Stale {
		return projects, nil
	}
	return s.fetchProjects(ctx, orgID)
}

// ReloadProjects always fetches the active organization's projects
func (s *Store) ReloadProjects(ctx context.Context) ([]models.Project, error) {
	orgID, err := s.orgID()
	if err != nil {
		return nil, err
	}
	return s.fetchProjects(ctx, orgID)
}

func (s *Store) fetchProjects(ctx context.Context, orgID string) ([]models.Project, error) {
	epoch := s.cache.Epoch()
	projects, err := s.api.Projects(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !s.cache.PutProjects(epoch, orgID, projects) {
		return nil, ErrDiscarded
	}
	cached, _, _ := s.cache.Projects(orgID)
	return cached, nil
}

// Project returns one project with tasks and comments, fetching when stale
func (s *Store) Project(ctx context.Context, id string) (models.Project, error) {
	orgID, err := s.orgID()
	if err != nil {
		return models.Project{}, err
	}
	if p, meta, ok := s.cache.Project(id, orgID); ok && !meta.Stale {
		return p, nil
	}
	return s.fetchProject(ctx, id, orgID)
}

// ReloadProject always fetches
func (s *Store) ReloadProject(ctx context.Context, id string) (models.Project, error) {
	orgID, err := s.orgID()
	if err != nil {
		return models.Project{}, err
	}
	return s.fetchProject(ctx, id, orgID)
}

// CachedProject returns the cached project, including pending optimistic
// patches, without touching the network
func (s *Store) CachedProject(id string) (models.Project, bool) {
	orgID := s.orgs.Current()
	p, _, ok := s.cache.Project(id, orgID)
	return p, ok
}

func (s *Store) fetchProject(ctx context.Context, id, orgID string) (models.Project, error) {
	epoch := s.cache.Epoch()
	p, err := s.api.Project(ctx, id, orgID)
	if err != nil {
		return models.Project{}, err
	}
	if !s.cache.PutProject(epoch, orgID, *p) {
		return models.Project{}, ErrDiscarded
	}
	cached, _, _ := s.cache.Project(id, orgID)
	return cached, nil
}

// Invalidated lists the query results a mutation makes stale
func Invalidated(op, orgID, projectID string) []cache.QueryKey {
	switch op {
	case api.OpCreateProject:
		return []cache.QueryKey{cache.ProjectsKey(orgID)}
	case api.OpUpdateProject:
		return []cache.QueryKey{cache.ProjectsKey(orgID), cache.ProjectKey(projectID, orgID)}
	case api.OpCreateTask, api.OpUpdateTask:
		// Statistics in the list change along with the task set
		return []cache.QueryKey{cache.ProjectKey(projectID, orgID), cache.ProjectsKey(orgID)}
	case api.OpAddTaskComment:
		return []cache.QueryKey{cache.ProjectKey(projectID, orgID)}
	case api.OpCreateOrganization, api.OpJoinOrganization:
		return []cache.QueryKey{cache.OrganizationsKey()}
	default:
		return nil
	}
}

// refetch invalidates the keys a mutation touched and reloads the ones
// currently cached. Failures only leave the result stale.
func (s *Store) refetch(ctx context.Context, op, orgID, projectID string) {
	keys := Invalidated(op, orgID, projectID)
	s.cache.Invalidate(keys...)

	for _, k := range keys {
		if !s.cache.Has(k) {
			continue
		}
		var err error
		switch k {
		case cache.OrganizationsKey():
			_, err = s.ReloadOrganizations(ctx)
		case cache.ProjectsKey(orgID):
			_, err = s.fetchProjects(ctx, orgID)
		case cache.ProjectKey(projectID, orgID):
			_, err = s.fetchProject(ctx, projectID, orgID)
		}
		if err != nil && !errors.Is(err, ErrDiscarded) {
			log.Warn().Err(err).Str("op", op).Stringer("key", k).Msg("refetch after mutation failed")
		}
	}
}
