package cache

import (
	"github.com/google/uuid"
	"github.com/tgienger/phub/internal/models"
)

// PatchState tracks one optimistic write from apply to settle
type PatchState int

const (
	PatchPending PatchState = iota
	PatchCommitted
	PatchRolledBack
	PatchDiscarded // dropped by Reset before it settled
)

func (s PatchState) String() string {
	switch s {
	case PatchPending:
		return "pending"
	case PatchCommitted:
		return "committed"
	case PatchRolledBack:
		return "rolled_back"
	case PatchDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Patch is a provisional overlay on top of server data. While pending, reads
// see the overlay and IsProvisional reports its fields. Commit and Rollback
// both remove the overlay; the base value is only ever written by server
// responses.
type Patch struct {
	id     string
	cache  *Cache
	target Ref
	fields []string
	parent string // task id for provisional comments

	task    *models.TaskInput
	project *models.ProjectInput
	comment *models.Comment

	state PatchState
}

// ID returns a unique identifier for logging
func (p *Patch) ID() string { return p.id }

// Target returns the entity the patch applies to
func (p *Patch) Target() Ref { return p.target }

// State returns the current state
func (p *Patch) State() PatchState {
	p.cache.mu.RLock()
	defer p.cache.mu.RUnlock()
	return p.state
}

// Commit confirms the patch. Write the server's value before committing so
// readers never see the pre-patch value in between.
func (p *Patch) Commit() error {
	return p.settle(PatchCommitted)
}

// Rollback abandons the patch, restoring the last known-good value
func (p *Patch) Rollback() error {
	return p.settle(PatchRolledBack)
}

func (p *Patch) settle(to PatchState) error {
	c := p.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	switch p.state {
	case PatchDiscarded:
		return nil
	case PatchPending:
	default:
		return ErrSettled
	}

	p.state = to
	for i, q := range c.pending {
		if q == p {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	return nil
}

// BeginTaskPatch provisionally applies the non-nil fields of in to a task
func (c *Cache) BeginTaskPatch(taskID string, in models.TaskInput) (*Patch, error) {
	var fields []string
	if in.Title != nil {
		fields = append(fields, "title")
	}
	if in.Description != nil {
		fields = append(fields, "description")
	}
	if in.Status != nil {
		fields = append(fields, "status")
	}
	if in.Priority != nil {
		fields = append(fields, "priority")
	}
	if in.DueDate != nil {
		fields = append(fields, "dueDate")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tasks[taskID]; !ok {
		return nil, ErrNotCached
	}
	p := &Patch{target: Ref{Type: TypeTask, ID: taskID}, fields: fields, task: &in}
	if err := c.beginLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

// BeginProjectPatch provisionally applies the non-nil fields of in to a project
func (c *Cache) BeginProjectPatch(projectID string, in models.ProjectInput) (*Patch, error) {
	var fields []string
	if in.Name != nil {
		fields = append(fields, "name")
	}
	if in.Description != nil {
		fields = append(fields, "description")
	}
	if in.Status != nil {
		fields = append(fields, "status")
	}
	if in.DueDate != nil {
		fields = append(fields, "dueDate")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.projects[projectID]; !ok {
		return nil, ErrNotCached
	}
	p := &Patch{target: Ref{Type: TypeProject, ID: projectID}, fields: fields, project: &in}
	if err := c.beginLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

// BeginCommentInsert shows a provisional comment at the top of a task's
// comments. An empty ID is replaced with a temp- id.
func (c *Cache) BeginCommentInsert(taskID string, cm models.Comment) (*Patch, error) {
	if cm.ID == "" {
		cm.ID = "temp-" + uuid.NewString()
	}
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = c.now()
		cm.UpdatedAt = cm.CreatedAt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tasks[taskID]; !ok {
		return nil, ErrNotCached
	}
	p := &Patch{
		target:  Ref{Type: TypeComment, ID: cm.ID},
		fields:  []string{"insert"},
		parent:  taskID,
		comment: &cm,
	}
	if err := c.beginLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Cache) beginLocked(p *Patch) error {
	for _, q := range c.pending {
		if q.target != p.target {
			continue
		}
		for _, f := range p.fields {
			for _, g := range q.fields {
				if f == g {
					return ErrFieldBusy
				}
			}
		}
	}
	p.id = uuid.NewString()
	p.cache = c
	p.state = PatchPending
	c.pending = append(c.pending, p)
	return nil
}

// IsProvisional reports whether field of ref is currently shown from a pending patch
func (c *Cache) IsProvisional(ref Ref, field string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.pending {
		if p.target != ref {
			continue
		}
		for _, f := range p.fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

// PendingCount returns the number of unsettled patches
func (c *Cache) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}
