package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/apitest"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/db"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/org"
	"github.com/tgienger/phub/internal/session"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/views"
)

type harness struct {
	t       *testing.T
	f       *apitest.Fixture
	db      *db.DB
	cache   *cache.Cache
	orgs    *org.Selector
	session *session.Store
	app     *App
}

// newHarness wires the app to a fake backend the way main does. A nil
// fixture or database is created fresh.
func newHarness(t *testing.T, f *apitest.Fixture, d *db.DB, joinCode string) *harness {
	t.Helper()

	if f == nil {
		f = apitest.NewFixture(t)
	}
	if d == nil {
		var err error
		d, err = db.Open(filepath.Join(t.TempDir(), "phub.db"))
		require.NoError(t, err)
		t.Cleanup(func() { d.Close() })
	}

	c := cache.New()
	sel := org.NewSelector(d)
	var sess *session.Store
	client := api.New(f.Endpoint, api.TokenFunc(func() string { return sess.Token() }))
	sess = session.New(client, d, session.OnSessionEnd(c.Reset), session.OnSessionEnd(sel.Clear))

	h := &harness{
		t: t, f: f, db: d, cache: c, orgs: sel, session: sess,
		app: NewApp(Options{
			Session:  sess,
			Store:    store.New(client, c, sel),
			Orgs:     sel,
			Memory:   d,
			LinkBase: "http://hub.test",
			JoinCode: joinCode,
		}),
	}
	h.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	h.drain(h.app.Init())
	return h
}

// ignored are timers that never settle on their own
func ignored(msg tea.Msg) bool {
	name := fmt.Sprintf("%T", msg)
	return strings.HasPrefix(name, "cursor.") || strings.HasPrefix(name, "spinner.")
}

func run(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(time.Second):
		return nil, false
	}
}

// drain executes cmd and every command that follows from it
func (h *harness) drain(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(h.t, steps, 500, "command loop did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := run(next)
		if !ok || msg == nil || ignored(msg) {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		_, c := h.app.Update(msg)
		queue = append(queue, c)
	}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	_, cmd := h.app.Update(msg)
	return cmd
}

func (h *harness) press(msgs ...tea.Msg) {
	for _, m := range msgs {
		h.drain(h.send(m))
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keySave  = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keySpace = tea.KeyMsg{Type: tea.KeySpace}
)

func (h *harness) login(username, password string) {
	h.press(runes(username), keyTab, runes(password), keySave)
}

func TestLoginShowsProjects(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	assert.Contains(t, h.app.View(), "Sign in to ProjectHub")

	h.login("demo", "wrong")
	assert.Contains(t, h.app.View(), apitest.MsgInvalidLogin)
	assert.Equal(t, session.StateAnonymous, h.session.State())

	// focus is still on the password field
	h.press(tea.KeyMsg{Type: tea.KeyCtrlU}, runes("demo"), keySave)
	view := h.app.View()
	assert.Equal(t, session.StateAuthenticated, h.session.State())
	assert.Contains(t, view, "Website Relaunch")
	assert.Contains(t, view, "Acme")
	assert.Equal(t, h.f.Org.ID, h.orgs.Current())

	tok, err := h.db.LoadToken()
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestStoredSessionIsResumed(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")

	again := newHarness(t, h.f, h.db, "")
	assert.Equal(t, session.StateAuthenticated, again.session.State())
	assert.Contains(t, again.app.View(), "Website Relaunch")
	assert.Equal(t, 1, h.f.Backend.Calls(api.OpLogin))
}

func TestJoinCodeWaitsForLogin(t *testing.T) {
	f := apitest.NewFixture(t)
	owner := f.Backend.AddUser("owner", "pw")
	globex := f.Backend.AddOrganization(owner.ID, "Globex")
	code := f.Backend.Invite(globex.ID, "demo@example.com")

	h := newHarness(t, f, nil, code)
	assert.Contains(t, h.app.View(), "Sign in to join the organization")
	assert.Zero(t, f.Backend.Calls(api.OpJoinOrganization), "no attempt before sign-in")

	h.login("demo", "demo")

	assert.Equal(t, 1, f.Backend.Calls(api.OpJoinOrganization))
	assert.Equal(t, globex.ID, h.orgs.Current())
	view := h.app.View()
	assert.Contains(t, view, "Successfully joined Globex!")
	assert.Contains(t, view, "No Projects")
}

func TestJoinFailureKeepsFormOpen(t *testing.T) {
	h := newHarness(t, nil, nil, "NOPE")
	h.login("demo", "demo")

	assert.Equal(t, 1, h.f.Backend.Calls(api.OpJoinOrganization))
	assert.Contains(t, h.app.View(), apitest.MsgInvalidInvite)
	assert.Contains(t, h.app.View(), "Join Organization")

	h.press(keyEsc)
	assert.Contains(t, h.app.View(), "Website Relaunch")
	assert.Equal(t, 1, h.f.Backend.Calls(api.OpJoinOrganization), "never resubmitted")
}

func TestStatusCycleIsOptimistic(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")
	h.press(keyEnter)
	require.Contains(t, h.app.View(), "Ship it")

	shipIt := h.f.Tasks[2]
	h.press(keyDown, keyDown)

	release := h.f.Backend.Hold(api.OpUpdateTask)
	cmd := h.send(keySpace)

	cached, ok := h.cache.Task(shipIt.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskInProgress, cached.Status, "shown before the server answers")
	assert.Contains(t, h.app.View(), "(saving)")

	release()
	h.drain(cmd)

	server, _ := h.f.Backend.Task(shipIt.ID)
	assert.Equal(t, models.TaskInProgress, server.Status)
	assert.NotContains(t, h.app.View(), "(saving)")
	assert.Zero(t, h.cache.PendingCount())
}

func TestStatusCycleRollsBack(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")
	h.press(keyEnter)

	h.f.Backend.FailNext(api.OpUpdateTask, apitest.MsgTaskNotFound)
	h.press(keySpace)

	cached, _ := h.cache.Task(h.f.Tasks[0].ID)
	assert.Equal(t, models.TaskDone, cached.Status)
	assert.Contains(t, h.app.View(), apitest.MsgTaskNotFound)
}

func TestCommentAppearsOnTask(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")
	h.press(keyEnter, keyEnter, runes("c"), runes("Looks great"), keySave)

	view := h.app.View()
	assert.Contains(t, view, "Looks great")
	assert.Contains(t, view, "Comments (1)")
	assert.NotContains(t, view, "(sending)")
	assert.Equal(t, 1, h.f.Backend.Calls(api.OpAddTaskComment))
}

func TestRemembersLastProject(t *testing.T) {
	f := apitest.NewFixture(t)
	d, err := db.Open(filepath.Join(t.TempDir(), "phub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.SaveLastProjectID(f.Project.ID))

	h := newHarness(t, f, d, "")
	h.login("demo", "demo")
	assert.Contains(t, h.app.View(), "Design mockups", "project reopened")

	h.press(keyEsc)
	last, err := d.LastProjectID()
	require.NoError(t, err)
	assert.Empty(t, last)
	assert.Contains(t, h.app.View(), "Projects")
}

func TestSessionExpiryReturnsToLogin(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")

	h.f.Backend.RevokeAll()
	h.press(runes("n"), runes("Roadmap"), keySave)

	assert.Equal(t, session.StateAnonymous, h.session.State())
	view := h.app.View()
	assert.Contains(t, view, "Your session has expired")
	assert.Contains(t, view, "Sign in to ProjectHub")
	assert.Empty(t, h.orgs.Current())
	tok, _ := h.db.LoadToken()
	assert.Empty(t, tok)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")
	h.press(runes("L"))

	assert.Equal(t, session.StateAnonymous, h.session.State())
	assert.Equal(t, 1, h.f.Backend.Calls(api.OpLogout))
	assert.Contains(t, h.app.View(), "Sign in to ProjectHub")
	_, _, ok := h.cache.Organizations()
	assert.False(t, ok, "cache cleared")
}

func TestLogoutDuringProjectLoad(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	release := h.f.Backend.Hold(api.OpGetProjects)
	defer release()

	h.login("demo", "demo")
	list, ok := h.app.screen.(*views.ProjectListView)
	require.True(t, ok)
	assert.Contains(t, h.app.View(), "Loading projects")

	// a second load from the same view, still in flight at logout
	pending := make(chan tea.Msg, 1)
	load := list.Init()
	go func() { pending <- load() }()
	require.Eventually(t, func() bool {
		return h.f.Backend.Calls(api.OpGetProjects) == 2
	}, 2*time.Second, 5*time.Millisecond)

	h.press(runes("L"))
	release()
	h.drain(func() tea.Msg { return <-pending })

	assert.Equal(t, session.StateAnonymous, h.session.State())
	assert.Contains(t, h.app.View(), "Sign in to ProjectHub")
	_, _, ok = h.cache.Projects(h.f.Org.ID)
	assert.False(t, ok, "late project list is not cached")
	_, _, ok = h.cache.Organizations()
	assert.False(t, ok)
	assert.Empty(t, h.orgs.Current())
}

func TestCreateOrganizationSelectsIt(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")

	h.press(runes("o"), keySave)
	assert.Contains(t, h.app.View(), "Organization name is required")

	h.press(runes("Initech"), keySave)
	view := h.app.View()
	assert.Contains(t, view, "Created Initech")
	assert.Contains(t, view, "No Projects")
	assert.NotEqual(t, h.f.Org.ID, h.orgs.Current())

	h.press(runes("O"))
	assert.Equal(t, h.f.Org.ID, h.orgs.Current(), "switcher wraps around")
	assert.Contains(t, h.app.View(), "Website Relaunch")
}

func TestInviteModal(t *testing.T) {
	h := newHarness(t, nil, nil, "")
	h.login("demo", "demo")

	h.press(runes("i"), runes("sam@example.com"), keySave)
	view := h.app.View()
	assert.Contains(t, view, "Invite created")
	assert.Contains(t, view, "http://hub.test/join?code=")

	h.press(runes("a"))
	assert.Contains(t, h.app.View(), "Invite to Acme")
	h.press(keyEsc)
	assert.Contains(t, h.app.View(), "Website Relaunch")
}
