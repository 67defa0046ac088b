package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/tgienger/phub/internal/models"
)

var (
	// ErrFieldBusy is returned when a field already carries a pending optimistic patch
	ErrFieldBusy = errors.New("cache: field has a pending optimistic patch")
	// ErrNotCached is returned when patching an entity the cache has never seen
	ErrNotCached = errors.New("cache: entity not cached")
	// ErrSettled is returned when a patch is committed or rolled back twice
	ErrSettled = errors.New("cache: patch already settled")
)

// Meta describes the freshness of a cached query result
type Meta struct {
	FetchedAt time.Time
	Stale     bool
}

type projectEntry struct {
	project  models.Project // Tasks always nil; rebuilt from taskIDs on read
	taskIDs  []string
	hasTasks bool
}

type taskEntry struct {
	task        models.Task // Comments always nil
	projectID   string
	commentIDs  []string
	hasComments bool
}

type queryEntry struct {
	refs      []Ref
	fetchedAt time.Time
	stale     bool
}

// Cache is the normalized, in-memory store shared by every view.
// Entities of the same type and id have exactly one representation; query
// results hold refs into it.
type Cache struct {
	mu sync.RWMutex

	epoch    uint64
	orgs     map[string]models.Organization
	projects map[string]*projectEntry
	tasks    map[string]*taskEntry
	comments map[string]models.Comment
	queries  map[QueryKey]*queryEntry
	pending  []*Patch

	maxAge time.Duration
	now    func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxAge marks query results stale once they are older than d (0 disables)
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.clear()
	return c
}

func (c *Cache) clear() {
	c.orgs = make(map[string]models.Organization)
	c.projects = make(map[string]*projectEntry)
	c.tasks = make(map[string]*taskEntry)
	c.comments = make(map[string]models.Comment)
	c.queries = make(map[QueryKey]*queryEntry)
}

// Epoch returns the current generation. Callers capture it before issuing a
// request and pass it back with the response.
func (c *Cache) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Reset drops every entity, query result and pending patch and starts a new
// epoch. Responses stamped with an older epoch are ignored afterwards.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.pending {
		p.state = PatchDiscarded
	}
	c.pending = nil
	c.clear()
	c.epoch++
}

// Invalidate marks query results stale so the next read refetches them
func (c *Cache) Invalidate(keys ...QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		if q, ok := c.queries[k]; ok {
			q.stale = true
		}
	}
}

// InvalidateProjectDetails marks every cached GetProject result stale, for
// task changes whose parent project is unknown
func (c *Cache) InvalidateProjectDetails() {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := ProjectKey("", "").Op
	for k, q := range c.queries {
		if k.Op == op {
			q.stale = true
		}
	}
}

// Has reports whether a result for key is cached at all
func (c *Cache) Has(key QueryKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.queries[key]
	return ok
}

// IsStale reports whether key is missing, invalidated, or past max age
func (c *Cache) IsStale(key QueryKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metaLocked(key).Stale
}

func (c *Cache) metaLocked(key QueryKey) Meta {
	q, ok := c.queries[key]
	if !ok {
		return Meta{Stale: true}
	}
	stale := q.stale
	if c.maxAge > 0 && c.now().Sub(q.fetchedAt) > c.maxAge {
		stale = true
	}
	return Meta{FetchedAt: q.fetchedAt, Stale: stale}
}

func (c *Cache) storeQueryLocked(key QueryKey, refs []Ref) {
	c.queries[key] = &queryEntry{refs: refs, fetchedAt: c.now()}
}

// PutOrganizations records a GetOrganizations result
func (c *Cache) PutOrganizations(epoch uint64, orgs []models.Organization) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}

	refs := make([]Ref, len(orgs))
	for i, o := range orgs {
		c.writeOrgLocked(o)
		refs[i] = Ref{Type: TypeOrganization, ID: o.ID}
	}
	c.storeQueryLocked(OrganizationsKey(), refs)
	return true
}

// PutOrganization merges a single organization, e.g. from a mutation response
func (c *Cache) PutOrganization(epoch uint64, o models.Organization) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	c.writeOrgLocked(o)
	return true
}

func (c *Cache) writeOrgLocked(o models.Organization) {
	if prev, ok := c.orgs[o.ID]; ok {
		// Partial selections (id, name, slug) must not blank richer fields
		if o.Description == "" {
			o.Description = prev.Description
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = prev.CreatedAt
		}
	}
	c.orgs[o.ID] = o
}

// PutProjects records a GetProjects result for an organization
func (c *Cache) PutProjects(epoch uint64, organizationID string, projects []models.Project) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}

	refs := make([]Ref, len(projects))
	for i, p := range projects {
		c.writeProjectLocked(p)
		refs[i] = Ref{Type: TypeProject, ID: p.ID}
	}
	c.storeQueryLocked(ProjectsKey(organizationID), refs)
	return true
}

// PutProject records a GetProject result, including its tasks and comments
func (c *Cache) PutProject(epoch uint64, organizationID string, p models.Project) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}

	c.writeProjectLocked(p)
	c.storeQueryLocked(ProjectKey(p.ID, organizationID), []Ref{{Type: TypeProject, ID: p.ID}})
	return true
}

// MergeProject merges a project from a mutation response without touching its task list
func (c *Cache) MergeProject(epoch uint64, p models.Project) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	p.Tasks = nil
	c.writeProjectLocked(p)
	return true
}

func (c *Cache) writeProjectLocked(p models.Project) {
	e, ok := c.projects[p.ID]
	if !ok {
		e = &projectEntry{}
		c.projects[p.ID] = e
	}

	stats := p.Statistics
	if stats == nil && e.project.Statistics != nil {
		stats = e.project.Statistics
	} else if stats != nil {
		s := *stats
		stats = &s
	}

	if p.Tasks != nil {
		e.taskIDs = make([]string, len(p.Tasks))
		for i, t := range p.Tasks {
			c.writeTaskLocked(p.ID, t)
			e.taskIDs[i] = t.ID
		}
		e.hasTasks = true
	}

	p.Tasks = nil
	p.Statistics = stats
	e.project = p
}

// MergeTask merges a task from a mutation response. Its comment list is kept.
func (c *Cache) MergeTask(epoch uint64, projectID string, t models.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	t.Comments = nil
	c.writeTaskLocked(projectID, t)
	return true
}

func (c *Cache) writeTaskLocked(projectID string, t models.Task) {
	e, ok := c.tasks[t.ID]
	if !ok {
		e = &taskEntry{projectID: projectID}
		c.tasks[t.ID] = e
	}
	// The parent project of a task never changes once known
	if e.projectID == "" {
		e.projectID = projectID
	}

	if t.Comments != nil {
		e.commentIDs = make([]string, len(t.Comments))
		for i, cm := range t.Comments {
			c.comments[cm.ID] = cm
			e.commentIDs[i] = cm.ID
		}
		e.hasComments = true
	}

	t.Comments = nil
	e.task = t
}

// MergeComment prepends a server-confirmed comment to its task
func (c *Cache) MergeComment(epoch uint64, taskID string, cm models.Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}

	c.comments[cm.ID] = cm
	if e, ok := c.tasks[taskID]; ok {
		for _, id := range e.commentIDs {
			if id == cm.ID {
				return true
			}
		}
		e.commentIDs = append([]string{cm.ID}, e.commentIDs...)
		e.hasComments = true
	}
	return true
}

// Organizations returns the cached GetOrganizations result
func (c *Cache) Organizations() ([]models.Organization, Meta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.queries[OrganizationsKey()]
	if !ok {
		return nil, Meta{Stale: true}, false
	}
	orgs := make([]models.Organization, 0, len(q.refs))
	for _, r := range q.refs {
		if o, ok := c.orgs[r.ID]; ok {
			orgs = append(orgs, o)
		}
	}
	return orgs, c.metaLocked(OrganizationsKey()), true
}

// Organization returns one cached organization
func (c *Cache) Organization(id string) (models.Organization, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orgs[id]
	return o, ok
}

// Projects returns the cached GetProjects result for an organization
func (c *Cache) Projects(organizationID string) ([]models.Project, Meta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := ProjectsKey(organizationID)
	q, ok := c.queries[key]
	if !ok {
		return nil, Meta{Stale: true}, false
	}
	projects := make([]models.Project, 0, len(q.refs))
	for _, r := range q.refs {
		if p, ok := c.projectLocked(r.ID, false); ok {
			projects = append(projects, p)
		}
	}
	return projects, c.metaLocked(key), true
}

// Project returns the cached GetProject result with tasks and comments
func (c *Cache) Project(projectID, organizationID string) (models.Project, Meta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := ProjectKey(projectID, organizationID)
	if _, ok := c.queries[key]; !ok {
		return models.Project{}, Meta{Stale: true}, false
	}
	p, ok := c.projectLocked(projectID, true)
	if !ok {
		return models.Project{}, Meta{Stale: true}, false
	}
	return p, c.metaLocked(key), true
}

// Task returns one cached task with pending patches applied
func (c *Cache) Task(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.taskLocked(id)
}

// TaskProject returns the parent project id recorded for a task
func (c *Cache) TaskProject(taskID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tasks[taskID]
	if !ok {
		return "", false
	}
	return e.projectID, true
}

func (c *Cache) projectLocked(id string, withTasks bool) (models.Project, bool) {
	e, ok := c.projects[id]
	if !ok {
		return models.Project{}, false
	}
	p := e.project
	if p.Statistics != nil {
		s := *p.Statistics
		p.Statistics = &s
	}
	if withTasks && e.hasTasks {
		p.Tasks = make([]models.Task, 0, len(e.taskIDs))
		for _, tid := range e.taskIDs {
			if t, ok := c.taskLocked(tid); ok {
				p.Tasks = append(p.Tasks, t)
			}
		}
	}
	for _, patch := range c.pending {
		if patch.target == (Ref{Type: TypeProject, ID: id}) && patch.project != nil {
			applyProjectInput(&p, *patch.project)
		}
	}
	return p, true
}

func (c *Cache) taskLocked(id string) (models.Task, bool) {
	e, ok := c.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	t := e.task
	if e.hasComments {
		t.Comments = make([]models.Comment, 0, len(e.commentIDs))
		for _, cid := range e.commentIDs {
			if cm, ok := c.comments[cid]; ok {
				t.Comments = append(t.Comments, cm)
			}
		}
	}
	for _, patch := range c.pending {
		switch {
		case patch.target == (Ref{Type: TypeTask, ID: id}) && patch.task != nil:
			applyTaskInput(&t, *patch.task)
		case patch.comment != nil && patch.parent == id:
			t.Comments = append([]models.Comment{*patch.comment}, t.Comments...)
		}
	}
	return t, true
}

func applyTaskInput(t *models.Task, in models.TaskInput) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
}

func applyProjectInput(p *models.Project, in models.ProjectInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.DueDate != nil {
		p.DueDate = *in.DueDate
	}
}
