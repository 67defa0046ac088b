package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// SessionTTL is the lifetime of an issued session token
const SessionTTL = 14 * 24 * time.Hour

type sessionClaims struct {
	Gen int `json:"gen"`
	jwt.RegisteredClaims
}

type gqlRequest struct {
	Query         string                     `json:"query"`
	OperationName string                     `json:"operationName"`
	Variables     map[string]json.RawMessage `json:"variables"`
}

type call struct {
	user   *user
	claims *sessionClaims
	vars   map[string]json.RawMessage
}

func (c *call) str(name string) string {
	var s string
	if raw, ok := c.vars[name]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func (c *call) decode(name string, v interface{}) error {
	raw, ok := c.vars[name]
	if !ok {
		return errors.New("missing variable $" + name)
	}
	return json.Unmarshal(raw, v)
}

type resolver func(b *Backend, c *call) (gin.H, error)

// mutationRoots maps mutation operations to their payload field
var mutationRoots = map[string]string{
	api.OpLogin:              "login",
	api.OpCreateOrganization: "createOrganization",
	api.OpJoinOrganization:   "joinOrganization",
	api.OpInviteToOrg:        "inviteToOrganization",
	api.OpCreateProject:      "createProject",
	api.OpUpdateProject:      "updateProject",
	api.OpCreateTask:         "createTask",
	api.OpUpdateTask:         "updateTask",
	api.OpAddTaskComment:     "addTaskComment",
}

var resolvers = map[string]resolver{
	api.OpLogin:              (*Backend).login,
	api.OpLogout:             (*Backend).logout,
	api.OpMe:                 (*Backend).me,
	api.OpGetOrganizations:   (*Backend).organizations,
	api.OpCreateOrganization: (*Backend).createOrganizationOp,
	api.OpJoinOrganization:   (*Backend).joinOrganization,
	api.OpInviteToOrg:        (*Backend).inviteToOrganization,
	api.OpGetProjects:        (*Backend).projectsOp,
	api.OpGetProject:         (*Backend).projectOp,
	api.OpCreateProject:      (*Backend).createProject,
	api.OpUpdateProject:      (*Backend).updateProject,
	api.OpCreateTask:         (*Backend).createTask,
	api.OpUpdateTask:         (*Backend).updateTask,
	api.OpAddTaskComment:     (*Backend).addTaskComment,
}

var ginMode sync.Once

// Handler returns the gin engine serving POST /graphql/
func (b *Backend) Handler() http.Handler {
	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.POST("/graphql/", b.serveGraphQL)
	r.POST("/graphql", b.serveGraphQL)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("op", c.GetString("op")).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("graphql request")
	}
}

func gqlErrors(msg string) gin.H {
	return gin.H{"data": nil, "errors": []gin.H{{"message": msg}}}
}

func failure(op, msg string) gin.H {
	return gin.H{mutationRoots[op]: gin.H{"success": false, "error": msg}}
}

func (b *Backend) serveGraphQL(c *gin.Context) {
	var req gqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gqlErrors("Must provide query string."))
		return
	}
	op := req.OperationName
	c.Set("op", op)

	res, ok := resolvers[op]
	if !ok {
		c.JSON(http.StatusBadRequest, gqlErrors("Unknown operation named \""+op+"\"."))
		return
	}

	b.enter(op)

	if msg, ok := b.takeFailure(op); ok {
		if _, isMutation := mutationRoots[op]; isMutation {
			c.JSON(http.StatusOK, gin.H{"data": failure(op, msg)})
		} else {
			c.JSON(http.StatusOK, gqlErrors(msg))
		}
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cl := &call{vars: req.Variables}
	if token := c.GetHeader(api.SessionHeader); token != "" {
		cl.user, cl.claims = b.session(token)
	}

	data, err := res(b, cl)
	if err != nil {
		c.JSON(http.StatusOK, gqlErrors(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (b *Backend) issueToken(u *user) (string, error) {
	now := b.now()
	claims := sessionClaims{
		Gen: b.gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// session resolves a token to its user; invalid tokens resolve to anonymous
func (b *Backend) session(token string) (*user, *sessionClaims) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	if err != nil || !parsed.Valid {
		return nil, nil
	}
	if claims.Gen != b.gen || b.revoked[claims.ID] {
		return nil, nil
	}
	u, ok := b.users[claims.Subject]
	if !ok {
		return nil, nil
	}
	return u, claims
}

func (b *Backend) login(c *call) (gin.H, error) {
	u, err := b.authenticate(c.str("username"), c.str("password"))
	if err != nil {
		return failure(api.OpLogin, err.Error()), nil
	}
	token, err := b.issueToken(u)
	if err != nil {
		return nil, err
	}
	return gin.H{"login": gin.H{"success": true, "sessionKey": token, "error": nil, "user": u.User}}, nil
}

func (b *Backend) logout(c *call) (gin.H, error) {
	if c.claims != nil {
		b.revoked[c.claims.ID] = true
	}
	return gin.H{"logout": gin.H{"success": true}}, nil
}

func (b *Backend) me(c *call) (gin.H, error) {
	if c.user == nil {
		return gin.H{"me": nil}, nil
	}
	return gin.H{"me": c.user.User}, nil
}

func (b *Backend) organizations(c *call) (gin.H, error) {
	if c.user == nil {
		return gin.H{"organizations": []models.Organization{}}, nil
	}
	return gin.H{"organizations": b.organizationsFor(c.user.ID)}, nil
}

func (b *Backend) createOrganizationOp(c *call) (gin.H, error) {
	const op = api.OpCreateOrganization
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	o, err := b.createOrganization(c.user.ID, c.str("name"), c.str("description"))
	if err != nil {
		return failure(op, err.Error()), nil
	}
	return gin.H{"createOrganization": gin.H{"success": true, "error": nil, "organization": o}}, nil
}

func (b *Backend) joinOrganization(c *call) (gin.H, error) {
	const op = api.OpJoinOrganization
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	o, err := b.redeemInvite(c.user.ID, c.str("inviteCode"))
	if err != nil {
		return failure(op, err.Error()), nil
	}
	return gin.H{"joinOrganization": gin.H{"success": true, "error": nil, "organization": o}}, nil
}

func (b *Backend) inviteToOrganization(c *call) (gin.H, error) {
	const op = api.OpInviteToOrg
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	orgID := c.str("organizationId")
	if !b.member(c.user.ID, orgID) {
		return failure(op, MsgOrgNotFound), nil
	}
	email := strings.TrimSpace(c.str("email"))
	if email == "" {
		return failure(op, MsgEmailRequired), nil
	}
	if !strings.Contains(email, "@") {
		return failure(op, "Enter a valid email address."), nil
	}
	code := b.createInvite(orgID, email)
	return gin.H{"inviteToOrganization": gin.H{"success": true, "error": nil, "inviteCode": code}}, nil
}

func (b *Backend) projectsOp(c *call) (gin.H, error) {
	orgID := c.str("organizationId")
	if c.user == nil || !b.member(c.user.ID, orgID) {
		return gin.H{"projects": []models.Project{}}, nil
	}
	return gin.H{"projects": b.projectsFor(orgID)}, nil
}

func (b *Backend) projectOp(c *call) (gin.H, error) {
	if c.user == nil {
		return gin.H{"project": nil}, nil
	}
	p, err := b.projectAccess(c.user.ID, c.str("id"), c.str("organizationId"))
	if err != nil {
		return gin.H{"project": nil}, nil
	}
	return gin.H{"project": b.projectView(p, true)}, nil
}

func checkDueDate(d *string) error {
	if d != nil && *d != "" && !validation.IsValidDate(*d) {
		return errors.New("Invalid due date: " + *d)
	}
	return nil
}

func (b *Backend) createProject(c *call) (gin.H, error) {
	const op = api.OpCreateProject
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	var in models.ProjectInput
	if err := c.decode("input", &in); err != nil {
		return nil, err
	}
	orgID := c.str("organizationId")
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return failure(op, MsgProjectNameReq), nil
	}
	if !b.member(c.user.ID, orgID) {
		return failure(op, MsgOrgNotFound), nil
	}
	status := models.ProjectPlanning
	if in.Status != nil {
		if !in.Status.Valid() {
			return failure(op, "Invalid status: "+string(*in.Status)), nil
		}
		status = *in.Status
	}
	if err := checkDueDate(in.DueDate); err != nil {
		return failure(op, err.Error()), nil
	}

	now := b.now()
	p := &project{
		Project: models.Project{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(*in.Name),
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		},
		orgID: orgID,
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.DueDate != nil {
		p.DueDate = *in.DueDate
	}
	b.projects[p.ID] = p
	return gin.H{"createProject": gin.H{"success": true, "error": nil, "project": p.Project}}, nil
}

func (b *Backend) updateProject(c *call) (gin.H, error) {
	const op = api.OpUpdateProject
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	var in models.ProjectInput
	if err := c.decode("input", &in); err != nil {
		return nil, err
	}
	p, err := b.projectAccess(c.user.ID, c.str("id"), c.str("organizationId"))
	if err != nil {
		return failure(op, err.Error()), nil
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return failure(op, MsgProjectNameEmpty), nil
	}
	if in.Status != nil && !in.Status.Valid() {
		return failure(op, "Invalid status: "+string(*in.Status)), nil
	}
	if err := checkDueDate(in.DueDate); err != nil {
		return failure(op, err.Error()), nil
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
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
	p.UpdatedAt = b.now()
	return gin.H{"updateProject": gin.H{"success": true, "error": nil, "project": p.Project}}, nil
}

func (b *Backend) createTask(c *call) (gin.H, error) {
	const op = api.OpCreateTask
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	var in models.TaskInput
	if err := c.decode("input", &in); err != nil {
		return nil, err
	}
	p, err := b.projectAccess(c.user.ID, c.str("projectId"), c.str("organizationId"))
	if err != nil {
		return failure(op, err.Error()), nil
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return failure(op, MsgTaskTitleReq), nil
	}
	t := models.Task{Title: strings.TrimSpace(*in.Title), Status: models.TaskTodo, Priority: models.PriorityMedium}
	if in.Status != nil {
		if !in.Status.Valid() {
			return failure(op, "Invalid status: "+string(*in.Status)), nil
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return failure(op, "Invalid priority: "+string(*in.Priority)), nil
		}
		t.Priority = *in.Priority
	}
	if err := checkDueDate(in.DueDate); err != nil {
		return failure(op, err.Error()), nil
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	rec := b.insertTask(p.ID, t)
	return gin.H{"createTask": gin.H{"success": true, "error": nil, "task": rec.Task}}, nil
}

func (b *Backend) updateTask(c *call) (gin.H, error) {
	const op = api.OpUpdateTask
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	var in models.TaskInput
	if err := c.decode("input", &in); err != nil {
		return nil, err
	}
	t, err := b.taskAccess(c.user.ID, c.str("id"), c.str("organizationId"))
	if err != nil {
		return failure(op, err.Error()), nil
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return failure(op, MsgTaskTitleEmpty), nil
	}
	if in.Status != nil && !in.Status.Valid() {
		return failure(op, "Invalid status: "+string(*in.Status)), nil
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return failure(op, "Invalid priority: "+string(*in.Priority)), nil
	}
	if err := checkDueDate(in.DueDate); err != nil {
		return failure(op, err.Error()), nil
	}

	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
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
	t.UpdatedAt = b.now()
	return gin.H{"updateTask": gin.H{"success": true, "error": nil, "task": t.Task}}, nil
}

func (b *Backend) addTaskComment(c *call) (gin.H, error) {
	const op = api.OpAddTaskComment
	if c.user == nil {
		return failure(op, MsgAuthRequired), nil
	}
	var in models.CommentInput
	if err := c.decode("input", &in); err != nil {
		return nil, err
	}
	t, err := b.taskAccess(c.user.ID, c.str("taskId"), c.str("organizationId"))
	if err != nil {
		return failure(op, err.Error()), nil
	}
	if strings.TrimSpace(in.Content) == "" {
		return failure(op, MsgCommentRequired), nil
	}
	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = "Anonymous"
	}
	now := b.now()
	cm := models.Comment{
		ID:          uuid.NewString(),
		Content:     in.Content,
		AuthorName:  author,
		AuthorEmail: in.AuthorEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.comments = append([]models.Comment{cm}, t.comments...)
	return gin.H{"addTaskComment": gin.H{"success": true, "error": nil, "comment": cm}}, nil
}
