package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/apitest"
	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/org"
	"github.com/tgienger/phub/internal/store"
)

type env struct {
	f      *apitest.Fixture
	client *api.Client
	orgs   *org.Selector
	store  *store.Store
}

func setup(t *testing.T) *env {
	t.Helper()
	f := apitest.NewFixture(t)

	token := ""
	client := api.New(f.Endpoint, api.TokenFunc(func() string { return token }))
	res, err := client.Login(context.Background(), apitest.DemoUsername, apitest.DemoPassword)
	require.NoError(t, err)
	token = res.SessionKey

	orgs := org.NewSelector(nil)
	orgs.Select(f.Org.ID)
	return &env{f: f, client: client, orgs: orgs, store: store.New(client, cache.New(), orgs)}
}

func taskByTitle(t *testing.T, p models.Project, title string) models.Task {
	t.Helper()
	for _, task := range p.Tasks {
		if task.Title == title {
			return task
		}
	}
	t.Fatalf("task %q not in project %s", title, p.Name)
	return models.Task{}
}

func TestReadsAreServedFromCache(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	first, err := e.store.Projects(ctx)
	require.NoError(t, err)
	second, err := e.store.Projects(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.f.Backend.Calls(api.OpGetProjects))

	_, err = e.store.ReloadProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, e.f.Backend.Calls(api.OpGetProjects))
}

func TestScopedCallsUseCurrentOrganization(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	other := e.f.Backend.AddOrganization(e.f.User.ID, "Globex")
	e.f.Backend.AddProject(other.ID, "Globex Portal", models.ProjectPlanning)

	list, err := e.store.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Website Relaunch", list[0].Name)

	e.orgs.Select(other.ID)
	list, err = e.store.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Globex Portal", list[0].Name)

	e.orgs.Clear()
	_, err = e.store.Projects(ctx)
	assert.ErrorIs(t, err, store.ErrNoOrganization)
}

func TestEmptyOrganizationHasNoProjects(t *testing.T) {
	t.Parallel()

	e := setup(t)
	empty := e.f.Backend.AddOrganization(e.f.User.ID, "Fresh Start")

	orgs, err := e.store.Organizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "Acme", orgs[0].Name, "server orders organizations by name")

	e.orgs.Select(empty.ID)
	list, err := e.store.Projects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateTaskRefetchesParent(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()
	_, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)

	_, err = e.store.CreateTask(ctx, e.f.Project.ID, models.TaskInput{
		Title:    models.Ptr("Write changelog"),
		Status:   models.Ptr(models.TaskTodo),
		Priority: models.Ptr(models.PriorityMedium),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, e.f.Backend.Calls(api.OpGetProject))

	p, ok := e.store.CachedProject(e.f.Project.ID)
	require.True(t, ok)
	task := taskByTitle(t, p, "Write changelog")
	assert.Equal(t, models.TaskTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, 4, p.Statistics.TotalTasks)
}

func TestCreateProjectRefreshesList(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()
	_, err := e.store.Projects(ctx)
	require.NoError(t, err)

	_, err = e.store.CreateProject(ctx, models.ProjectInput{Name: models.Ptr("Brand Refresh")})
	require.NoError(t, err)

	list, err := e.store.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, e.f.Backend.Calls(api.OpGetProjects), "list read after the refetch is fresh")
}

func TestUnchangedEditKeepsStatistics(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()
	before, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)

	in := models.ProjectInput{
		Name:        models.Ptr(before.Name),
		Description: models.Ptr(before.Description),
		Status:      models.Ptr(before.Status),
	}
	_, err = e.store.UpdateProject(ctx, before.ID, in)
	require.NoError(t, err)
	_, err = e.store.UpdateProject(ctx, before.ID, in)
	require.NoError(t, err)

	after, err := e.store.Project(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, e.f.Backend.Calls(api.OpUpdateProject))
	assert.Equal(t, *before.Statistics, *after.Statistics)
}

func TestTaskStatusIsOptimistic(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()
	p, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	task := taskByTitle(t, p, "Ship it")

	ch, err := e.store.BeginTaskStatus(task.ID, models.TaskDone)
	require.NoError(t, err)

	// Visible before any request is made
	p, _ = e.store.CachedProject(p.ID)
	assert.Equal(t, models.TaskDone, taskByTitle(t, p, "Ship it").Status)
	assert.True(t, e.store.Cache().IsProvisional(cache.Ref{Type: cache.TypeTask, ID: task.ID}, "status"))
	assert.Zero(t, e.f.Backend.Calls(api.OpUpdateTask))

	_, err = e.store.BeginTaskStatus(task.ID, models.TaskInReview)
	assert.ErrorIs(t, err, cache.ErrFieldBusy, "one pending patch per field")

	require.NoError(t, ch.Send(ctx))
	assert.Equal(t, cache.PatchCommitted, ch.Patch().State())
	assert.ErrorIs(t, ch.Send(ctx), cache.ErrSettled)

	p, _ = e.store.CachedProject(p.ID)
	assert.Equal(t, models.TaskDone, taskByTitle(t, p, "Ship it").Status)
	assert.Equal(t, 2, p.Statistics.CompletedTasks, "statistics come from the refetch")
	assert.Equal(t, 2, e.f.Backend.Calls(api.OpGetProject))
}

func TestFailedStatusChangeRollsBack(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()
	p, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	task := taskByTitle(t, p, "Ship it")

	e.f.Backend.FailNext(api.OpUpdateTask, "Access denied to this task")
	err = e.store.SetTaskStatus(ctx, task.ID, models.TaskDone)
	require.Error(t, err)
	assert.Equal(t, "Access denied to this task", apperr.UserMessage(err))

	p, _ = e.store.CachedProject(p.ID)
	assert.Equal(t, models.TaskTodo, taskByTitle(t, p, "Ship it").Status)
	assert.Zero(t, e.store.Cache().PendingCount())
}

// wrongGuess stores a different status than the one shown optimistically
type wrongGuess struct {
	*api.Client
}

func (w wrongGuess) UpdateTask(ctx context.Context, id, orgID string, in models.TaskInput) (*models.Task, error) {
	in.Status = models.Ptr(models.TaskInReview)
	return w.Client.UpdateTask(ctx, id, orgID, in)
}

func TestStatusConvergesToServerValue(t *testing.T) {
	t.Parallel()

	e := setup(t)
	s := store.New(wrongGuess{e.client}, cache.New(), e.orgs)
	ctx := context.Background()

	p, err := s.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	task := taskByTitle(t, p, "Ship it")

	require.NoError(t, s.SetTaskStatus(ctx, task.ID, models.TaskDone))

	p, _ = s.CachedProject(p.ID)
	assert.Equal(t, models.TaskInReview, taskByTitle(t, p, "Ship it").Status)
	server, _ := e.f.Backend.Task(task.ID)
	assert.Equal(t, models.TaskInReview, server.Status)
}

func TestProvisionalComment(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()
	p, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	task := taskByTitle(t, p, "Draft copy")

	ch, err := e.store.BeginComment(task.ID, models.CommentInput{Content: "first pass done"})
	require.NoError(t, err)

	p, _ = e.store.CachedProject(p.ID)
	shown := taskByTitle(t, p, "Draft copy").Comments
	require.Len(t, shown, 1)
	assert.True(t, strings.HasPrefix(shown[0].ID, "temp-"))
	assert.Equal(t, "Anonymous", shown[0].AuthorName)

	require.NoError(t, ch.Send(ctx))
	require.NotNil(t, ch.Comment())

	p, _ = e.store.CachedProject(p.ID)
	shown = taskByTitle(t, p, "Draft copy").Comments
	require.Len(t, shown, 1)
	assert.Equal(t, ch.Comment().ID, shown[0].ID)
}

func TestResponseAfterResetIsDiscarded(t *testing.T) {
	t.Parallel()

	e := setup(t)
	release := e.f.Backend.Hold(api.OpGetProjects)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := e.store.Projects(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return e.f.Backend.Calls(api.OpGetProjects) == 1
	}, 2*time.Second, 5*time.Millisecond)

	e.store.Cache().Reset()
	release()

	assert.ErrorIs(t, <-done, store.ErrDiscarded)
	_, _, ok := e.store.Cache().Projects(e.f.Org.ID)
	assert.False(t, ok, "no stale project data after reset")
}

func TestJoinRefreshesOrganizations(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	other := e.f.Backend.AddUser("owner2", "pw")
	globex := e.f.Backend.AddOrganization(other.ID, "Globex")

	orgs, err := e.store.Organizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)

	ownerToken := ""
	owner := api.New(e.f.Endpoint, api.TokenFunc(func() string { return ownerToken }))
	res, err := owner.Login(ctx, "owner2", "pw")
	require.NoError(t, err)
	ownerToken = res.SessionKey
	code, err := owner.InviteToOrganization(ctx, globex.ID, "demo@example.com")
	require.NoError(t, err)

	_, err = e.store.JoinOrganization(ctx, "bogus")
	assert.Equal(t, "Invalid or expired invite code", apperr.UserMessage(err))

	joined, err := e.store.JoinOrganization(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, globex.ID, joined.ID)

	orgs, err = e.store.Organizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}

func TestInvalidatedKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []cache.QueryKey{cache.ProjectsKey("o")}, store.Invalidated(api.OpCreateProject, "o", "p"))
	assert.Equal(t, []cache.QueryKey{cache.ProjectKey("p", "o")}, store.Invalidated(api.OpAddTaskComment, "o", "p"))
	assert.Contains(t, store.Invalidated(api.OpCreateTask, "o", "p"), cache.ProjectKey("p", "o"))
	assert.Contains(t, store.Invalidated(api.OpUpdateTask, "o", "p"), cache.ProjectKey("p", "o"))
	assert.Contains(t, store.Invalidated(api.OpUpdateProject, "o", "p"), cache.ProjectsKey("o"))
	assert.Equal(t, []cache.QueryKey{cache.OrganizationsKey()}, store.Invalidated(api.OpJoinOrganization, "", ""))
	assert.Equal(t, []cache.QueryKey{cache.OrganizationsKey()}, store.Invalidated(api.OpCreateOrganization, "", ""))
	assert.Nil(t, store.Invalidated(api.OpGetProjects, "o", ""))
}

func TestUpdateOfUncachedTaskRefreshesQueries(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	_, err := e.store.Projects(ctx)
	require.NoError(t, err)
	_, err = e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)

	// created by someone else after the project was fetched
	added := e.f.Backend.AddTask(e.f.Project.ID, "Translate copy", models.TaskTodo)

	_, err = e.store.UpdateTask(ctx, added.ID, models.TaskInput{Status: models.Ptr(models.TaskDone)})
	require.NoError(t, err)

	assert.Equal(t, 2, e.f.Backend.Calls(api.OpGetProjects), "project list refetched")
	assert.True(t, e.store.Cache().IsStale(cache.ProjectKey(e.f.Project.ID, e.f.Org.ID)))

	p, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskDone, taskByTitle(t, p, "Translate copy").Status)
}

func TestCommentOnUncachedTaskRefreshesProject(t *testing.T) {
	t.Parallel()

	e := setup(t)
	ctx := context.Background()

	_, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	added := e.f.Backend.AddTask(e.f.Project.ID, "Translate copy", models.TaskTodo)

	c, err := e.store.AddTaskComment(ctx, added.ID, models.CommentInput{Content: "on it"})
	require.NoError(t, err)
	require.NotNil(t, c)

	p, err := e.store.Project(ctx, e.f.Project.ID)
	require.NoError(t, err)
	comments := taskByTitle(t, p, "Translate copy").Comments
	require.Len(t, comments, 1)
	assert.Equal(t, c.ID, comments[0].ID)
}

func TestMalformedMutationResponseIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"createOrganization":{"success":true,"organization":null}}}`))
	}))
	defer srv.Close()

	s := store.New(api.New(srv.URL, nil), cache.New(), org.NewSelector(nil))
	assert.NotPanics(t, func() {
		o, err := s.CreateOrganization(context.Background(), "Acme", "")
		assert.Nil(t, o)
		assert.True(t, apperr.IsErrorType(err, apperr.ErrorTypeServer))
	})
}
