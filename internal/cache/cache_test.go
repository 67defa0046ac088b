package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/models"
)

const orgID = "org1"

func sampleProject() models.Project {
	return models.Project{
		ID:     "p1",
		Name:   "Launch",
		Status: models.ProjectActive,
		Tasks: []models.Task{
			{
				ID:       "t1",
				Title:    "Write changelog",
				Status:   models.TaskTodo,
				Priority: models.PriorityMedium,
				Comments: []models.Comment{{ID: "c1", Content: "first", AuthorName: "Anonymous"}},
			},
			{ID: "t2", Title: "Review", Status: models.TaskInReview, Priority: models.PriorityHigh},
		},
		Statistics: &models.Statistics{TotalTasks: 2, PendingTasks: 2},
	}
}

func TestKeysAreStable(t *testing.T) {
	t.Parallel()

	a := cache.NewKey("GetProject", map[string]string{"id": "p1", "organizationId": orgID})
	b := cache.NewKey("GetProject", map[string]string{"organizationId": orgID, "id": "p1"})

	assert.Equal(t, a, b)
	assert.Equal(t, a, cache.ProjectKey("p1", orgID))
	assert.Equal(t, "GetProject(id=p1,organizationId=org1)", a.String())
	assert.NotEqual(t, cache.ProjectsKey("org1"), cache.ProjectsKey("org2"))
}

func TestNormalizationSharesEntities(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	c := cache.New()
	epoch := c.Epoch()

	require.True(t, c.PutProject(epoch, orgID, sampleProject()))
	require.True(t, c.PutProjects(epoch, orgID, []models.Project{{ID: "p1", Name: "Launch", Status: models.ProjectActive}}))

	// A mutation response for the project is visible through both queries
	assert.True(c.MergeProject(epoch, models.Project{ID: "p1", Name: "Launch v2", Status: models.ProjectOnHold}))

	list, _, ok := c.Projects(orgID)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal("Launch v2", list[0].Name)
	assert.Nil(list[0].Tasks)

	detail, meta, ok := c.Project("p1", orgID)
	require.True(t, ok)
	assert.False(meta.Stale)
	assert.Equal("Launch v2", detail.Name)
	assert.Len(detail.Tasks, 2, "merge must keep the task list")
	require.NotNil(t, detail.Statistics)
	assert.Equal(2, detail.Statistics.TotalTasks, "statistics survive a merge without them")

	// A task write is visible from the project detail
	assert.True(c.MergeTask(epoch, "p1", models.Task{ID: "t1", Title: "Write changelog", Status: models.TaskDone, Priority: models.PriorityMedium}))
	detail, _, _ = c.Project("p1", orgID)
	assert.Equal(models.TaskDone, detail.Tasks[0].Status)
	assert.Len(detail.Tasks[0].Comments, 1, "merge must keep comments")
}

func TestTaskParentIsImmutable(t *testing.T) {
	t.Parallel()

	c := cache.New()
	require.True(t, c.PutProject(c.Epoch(), orgID, sampleProject()))
	require.True(t, c.MergeTask(c.Epoch(), "other", models.Task{ID: "t1", Title: "moved?"}))

	parent, ok := c.TaskProject("t1")
	require.True(t, ok)
	assert.Equal(t, "p1", parent)
}

func TestResetDropsStaleEpochWrites(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	c := cache.New()

	before := c.Epoch()
	require.True(t, c.PutProjects(before, orgID, []models.Project{{ID: "p1"}}))

	c.Reset()

	_, _, ok := c.Projects(orgID)
	assert.False(ok, "reset clears query results")

	// A response that was in flight during reset must not repopulate the cache
	assert.False(c.PutProjects(before, orgID, []models.Project{{ID: "p1", Name: "stale"}}))
	assert.False(c.Has(cache.ProjectsKey(orgID)))
	assert.NotEqual(before, c.Epoch())
}

func TestInvalidateAndMaxAge(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c := cache.New(cache.WithMaxAge(time.Minute), cache.WithClock(func() time.Time { return now }))

	assert.True(c.IsStale(cache.ProjectsKey(orgID)), "missing results are stale")

	require.True(t, c.PutProjects(c.Epoch(), orgID, nil))
	assert.False(c.IsStale(cache.ProjectsKey(orgID)))

	c.Invalidate(cache.ProjectsKey(orgID))
	assert.True(c.IsStale(cache.ProjectsKey(orgID)))

	require.True(t, c.PutProjects(c.Epoch(), orgID, nil))
	now = now.Add(2 * time.Minute)
	assert.True(c.IsStale(cache.ProjectsKey(orgID)))
}

func TestOrganizationsKeepRicherFields(t *testing.T) {
	t.Parallel()

	c := cache.New()
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	require.True(t, c.PutOrganization(c.Epoch(), models.Organization{ID: orgID, Name: "Acme", Description: "widgets", CreatedAt: created}))
	require.True(t, c.PutOrganizations(c.Epoch(), []models.Organization{{ID: orgID, Name: "Acme", Slug: "acme"}}))

	orgs, _, ok := c.Organizations()
	require.True(t, ok)
	require.Len(t, orgs, 1)
	assert.Equal(t, "widgets", orgs[0].Description)
	assert.Equal(t, created, orgs[0].CreatedAt)
	assert.Equal(t, "acme", orgs[0].Slug)
}

func TestInvalidateProjectDetails(t *testing.T) {
	t.Parallel()

	c := cache.New()
	epoch := c.Epoch()
	require.True(t, c.PutProject(epoch, orgID, sampleProject()))
	require.True(t, c.PutProjects(epoch, orgID, []models.Project{{ID: "p1", Name: "Launch"}}))

	c.InvalidateProjectDetails()

	assert.True(t, c.IsStale(cache.ProjectKey("p1", orgID)))
	assert.False(t, c.IsStale(cache.ProjectsKey(orgID)))
}
