// Package apitest is an in-memory ProjectHub backend speaking the same GraphQL
// operation set as the real server. It backs package tests and the
// phub-devserver command.
package apitest

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tgienger/phub/internal/models"
)

// Server messages, matching the production backend
const (
	MsgAuthRequired     = "Authentication required"
	MsgInvalidLogin     = "Invalid credentials"
	MsgProjectNotFound  = "Project not found"
	MsgProjectDenied    = "Access denied to this project"
	MsgTaskNotFound     = "Task not found"
	MsgTaskDenied       = "Access denied to this task"
	MsgOrgNotFound      = "Organization not found"
	MsgInvalidInvite    = "Invalid or expired invite code"
	MsgAlreadyMember    = "You are already a member of this organization"
	MsgOrgNameRequired  = "Organization name is required"
	MsgProjectNameReq   = "Project name is required"
	MsgProjectNameEmpty = "Project name cannot be empty"
	MsgTaskTitleReq     = "Task title is required"
	MsgTaskTitleEmpty   = "Task title cannot be empty"
	MsgCommentRequired  = "Comment content is required"
	MsgEmailRequired    = "Email is required"
)

// InviteTTL is how long an invite code can be redeemed
const InviteTTL = 7 * 24 * time.Hour

type user struct {
	models.User
	email string
	hash  []byte
}

type organization struct {
	models.Organization
	members map[string]string // user id -> role
}

type project struct {
	models.Project
	orgID string
}

type task struct {
	models.Task
	projectID string
	comments  []models.Comment // newest first
}

type invite struct {
	orgID   string
	email   string
	expires time.Time
	used    bool
}

// Backend holds all server state behind one mutex
type Backend struct {
	mu sync.Mutex

	users    map[string]*user // by id
	orgs     map[string]*organization
	projects map[string]*project
	tasks    map[string]*task
	invites  map[string]*invite
	revoked  map[string]bool // logged-out session token ids
	gen      int             // tokens from an older generation are expired

	secret []byte
	now    func() time.Time

	calls map[string]int
	fail  map[string]string
	holds map[string]chan struct{}
}

// Option configures a Backend
type Option func(*Backend)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithSecret sets the key session tokens are signed with
func WithSecret(secret string) Option {
	return func(b *Backend) { b.secret = []byte(secret) }
}

// NewBackend creates an empty backend
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		users:    make(map[string]*user),
		orgs:     make(map[string]*organization),
		projects: make(map[string]*project),
		tasks:    make(map[string]*task),
		invites:  make(map[string]*invite),
		revoked:  make(map[string]bool),
		secret:   []byte(uuid.NewString()),
		now:      time.Now,
		calls:    make(map[string]int),
		fail:     make(map[string]string),
		holds:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddUser registers an account and returns it
func (b *Backend) AddUser(username, password string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	u := &user{
		User:  models.User{ID: uuid.NewString(), Username: username},
		email: username + "@example.com",
		hash:  hash,
	}
	b.users[u.ID] = u
	return u.User
}

// AddOrganization creates an organization owned by the named user
func (b *Backend) AddOrganization(ownerID, name string) models.Organization {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, _ := b.createOrganization(ownerID, name, "")
	return o
}

// AddProject creates a project directly, bypassing access checks
func (b *Backend) AddProject(orgID, name string, status models.ProjectStatus) models.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	p := &project{
		Project: models.Project{ID: uuid.NewString(), Name: name, Status: status, CreatedAt: now, UpdatedAt: now},
		orgID:   orgID,
	}
	b.projects[p.ID] = p
	return p.Project
}

// AddTask creates a task directly, bypassing access checks
func (b *Backend) AddTask(projectID, title string, status models.TaskStatus) models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.insertTask(projectID, models.Task{Title: title, Status: status, Priority: models.PriorityMedium})
	return t.Task
}

// Invite issues an invite code directly, bypassing access checks
func (b *Backend) Invite(orgID, email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createInvite(orgID, email)
}

// Calls returns how many requests named op have been served
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// FailNext makes the next mutation named op report success:false with msg
func (b *Backend) FailNext(op, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[op] = msg
}

// Hold blocks requests named op until the returned release func is called
func (b *Backend) Hold(op string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[op] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, op)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// RevokeAll expires every issued session token
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
}

// Task returns the server's copy of a task
func (b *Backend) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Task, true
}

func (b *Backend) enter(op string) {
	b.mu.Lock()
	b.calls[op]++
	ch := b.holds[op]
	b.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (b *Backend) takeFailure(op string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.fail[op]
	if ok {
		delete(b.fail, op)
	}
	return msg, ok
}

func (b *Backend) authenticate(username, password string) (*user, error) {
	for _, u := range b.users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
			return nil, errors.New(MsgInvalidLogin)
		}
		return u, nil
	}
	return nil, errors.New(MsgInvalidLogin)
}

func (b *Backend) member(userID, orgID string) bool {
	o, ok := b.orgs[orgID]
	if !ok || !o.IsActive {
		return false
	}
	_, ok = o.members[userID]
	return ok
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func (b *Backend) createOrganization(ownerID, name, description string) (models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Organization{}, errors.New(MsgOrgNameRequired)
	}

	base := slugify(name)
	slug := base
	for n := 1; b.slugTaken(slug); n++ {
		slug = base + "-" + strconv.Itoa(n)
	}

	o := &organization{
		Organization: models.Organization{
			ID:          uuid.NewString(),
			Name:        name,
			Slug:        slug,
			Description: description,
			IsActive:    true,
			CreatedAt:   b.now(),
		},
		members: map[string]string{ownerID: "owner"},
	}
	b.orgs[o.ID] = o
	return o.Organization, nil
}

func (b *Backend) slugTaken(slug string) bool {
	for _, o := range b.orgs {
		if o.Slug == slug {
			return true
		}
	}
	return false
}

func (b *Backend) organizationsFor(userID string) []models.Organization {
	out := []models.Organization{}
	for _, o := range b.orgs {
		if b.member(userID, o.ID) {
			out = append(out, o.Organization)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *Backend) projectAccess(userID, projectID, orgID string) (*project, error) {
	p, ok := b.projects[projectID]
	if !ok {
		return nil, errors.New(MsgProjectNotFound)
	}
	if p.orgID != orgID || !b.member(userID, orgID) {
		return nil, errors.New(MsgProjectDenied)
	}
	return p, nil
}

func (b *Backend) taskAccess(userID, taskID, orgID string) (*task, error) {
	t, ok := b.tasks[taskID]
	if !ok {
		return nil, errors.New(MsgTaskNotFound)
	}
	p := b.projects[t.projectID]
	if p == nil || p.orgID != orgID || !b.member(userID, orgID) {
		return nil, errors.New(MsgTaskDenied)
	}
	return t, nil
}

func (b *Backend) projectTasks(projectID string) []models.Task {
	var ts []*task
	for _, t := range b.tasks {
		if t.projectID == projectID {
			ts = append(ts, t)
		}
	}
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Order != ts[j].Order {
			return ts[i].Order < ts[j].Order
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
	out := make([]models.Task, len(ts))
	for i, t := range ts {
		out[i] = t.Task
		out[i].Comments = append([]models.Comment{}, t.comments...)
	}
	return out
}

// projectView renders a project with statistics, and with tasks when detailed
func (b *Backend) projectView(p *project, detailed bool) models.Project {
	out := p.Project
	tasks := b.projectTasks(p.ID)
	stats := models.ComputeStatistics(tasks)
	out.Statistics = &stats
	if detailed {
		out.Tasks = tasks
	}
	return out
}

func (b *Backend) projectsFor(orgID string) []models.Project {
	var ps []*project
	for _, p := range b.projects {
		if p.orgID == orgID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
	out := make([]models.Project, len(ps))
	for i, p := range ps {
		out[i] = b.projectView(p, false)
	}
	return out
}

func (b *Backend) insertTask(projectID string, t models.Task) *task {
	n := 0
	for _, other := range b.tasks {
		if other.projectID == projectID {
			n++
		}
	}
	now := b.now()
	t.ID = uuid.NewString()
	t.Order = n
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Comments = nil
	rec := &task{Task: t, projectID: projectID}
	b.tasks[t.ID] = rec
	return rec
}

func (b *Backend) createInvite(orgID, email string) string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	b.invites[code] = &invite{orgID: orgID, email: email, expires: b.now().Add(InviteTTL)}
	return code
}

func (b *Backend) redeemInvite(userID, code string) (models.Organization, error) {
	inv, ok := b.invites[strings.TrimSpace(code)]
	if !ok || inv.used || b.now().After(inv.expires) {
		return models.Organization{}, errors.New(MsgInvalidInvite)
	}
	o, ok := b.orgs[inv.orgID]
	if !ok || !o.IsActive {
		return models.Organization{}, errors.New(MsgInvalidInvite)
	}
	if _, ok := o.members[userID]; ok {
		return models.Organization{}, errors.New(MsgAlreadyMember)
	}
	inv.used = true
	o.members[userID] = "member"
	return o.Organization, nil
}
