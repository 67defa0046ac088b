package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/org"
	"github.com/tgienger/phub/internal/session"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
	"github.com/tgienger/phub/internal/ui/views"
)

// ProjectMemory remembers the project open at exit
type ProjectMemory interface {
	LastProjectID() (string, error)
	SaveLastProjectID(id string) error
}

// Options configures the app shell
type Options struct {
	Session  *session.Store
	Store    *store.Store
	Orgs     *org.Selector
	Memory   ProjectMemory
	LinkBase string // join links are <LinkBase>/join?code=...
	JoinCode string // redeemed once the user is signed in

	// InviteOptions are passed to every invite form, for tests
	InviteOptions []forms.InviteOption
}

type screen interface {
	tea.Model
	Close()
}

type sessionResolvedMsg struct{ state session.State }

type orgsLoadedMsg struct {
	orgs []models.Organization
	err  error
}

type loggedOutMsg struct{}

// App is the root model
type App struct {
	opts    Options
	styles  *styles.Styles
	keys    keys.KeyMap
	spinner spinner.Model

	screen screen
	modal  screen
	join   *views.JoinView

	orgs    []models.Organization
	loading bool
	loadErr error
	restore bool // reopen the remembered project after the first org load

	width  int
	height int
}

// NewApp creates the application
func NewApp(opts Options) *App {
	a := &App{
		opts:    opts,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		loading: true,
		restore: true,
	}
	if opts.JoinCode != "" {
		a.join = views.NewJoinView(opts.Store, opts.JoinCode)
	}
	return a
}

// Init resolves the stored session
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.resolve)
}

func (a *App) resolve() tea.Msg {
	return sessionResolvedMsg{state: a.opts.Session.Resolve(context.Background())}
}

func (a *App) loadOrganizations() tea.Msg {
	orgs, err := a.opts.Store.Organizations(context.Background())
	return orgsLoadedMsg{orgs: orgs, err: err}
}

func (a *App) size() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height - 2}
}

// show replaces the current screen
func (a *App) show(s screen) tea.Cmd {
	if a.screen != nil && a.screen != screen(a.join) {
		a.screen.Close()
	}
	a.screen = s
	a.loading = false
	if s == nil {
		return nil
	}
	s.Update(a.size())
	return s.Init()
}

func (a *App) openModal(m screen) tea.Cmd {
	a.closeModal()
	a.modal = m
	m.Update(a.size())
	return m.Init()
}

func (a *App) closeModal() {
	if a.modal != nil {
		a.modal.Close()
		a.modal = nil
	}
}

func (a *App) showLogin(notice string) tea.Cmd {
	a.closeModal()
	a.orgs = nil
	if notice == "" && a.join != nil && a.join.Pending() {
		notice = "Sign in to join the organization"
	}
	return a.show(views.NewLoginView(a.opts.Session, notice))
}

func (a *App) signedIn() tea.Cmd {
	a.loading = true
	a.loadErr = nil
	return a.loadOrganizations
}

func (a *App) showProjects(notice string) tea.Cmd {
	a.remember("")
	if a.opts.Orgs.Current() == "" {
		return a.show(nil)
	}
	return a.show(views.NewProjectListView(a.opts.Store, notice))
}

func (a *App) openProject(id string) tea.Cmd {
	a.remember(id)
	author := ""
	if u := a.opts.Session.User(); u != nil {
		author = u.DisplayName()
	}
	return a.show(views.NewProjectView(a.opts.Store, id, author))
}

func (a *App) remember(projectID string) {
	if a.opts.Memory == nil {
		return
	}
	if err := a.opts.Memory.SaveLastProjectID(projectID); err != nil {
		log.Warn().Err(err).Msg("could not remember project")
	}
}

func (a *App) currentOrg() (models.Organization, bool) {
	id := a.opts.Orgs.Current()
	for _, o := range a.orgs {
		if o.ID == id {
			return o, true
		}
	}
	return models.Organization{}, false
}

func (a *App) organizationsLoaded(msg orgsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		a.loading = false
		if a.opts.Session.Expire(msg.err) {
			return a.showLogin("Your session has expired. Please sign in again.")
		}
		a.loadErr = msg.err
		return nil
	}
	a.orgs = msg.orgs
	a.opts.Orgs.EnsureSelected(a.orgs)

	if a.join != nil && a.join.Pending() {
		cmd := a.show(a.join)
		return tea.Batch(cmd, a.join.Authenticated())
	}

	if a.restore {
		a.restore = false
		if a.opts.Memory != nil && a.opts.Orgs.Current() != "" {
			if id, err := a.opts.Memory.LastProjectID(); err == nil && id != "" {
				return a.openProject(id)
			}
		}
	}
	return a.showProjects("")
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.screen != nil {
			a.screen.Update(a.size())
		}
		if a.modal != nil {
			a.modal.Update(a.size())
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionResolvedMsg:
		if msg.state == session.StateAuthenticated {
			return a, a.signedIn()
		}
		return a, a.showLogin("")

	case views.LoggedIn:
		return a, a.signedIn()

	case orgsLoadedMsg:
		if a.opts.Session.State() != session.StateAuthenticated {
			return a, nil
		}
		return a, a.organizationsLoaded(msg)

	case views.OpenProject:
		a.closeModal()
		return a, a.openProject(msg.ID)

	case views.BackToProjects:
		if a.screen == screen(a.join) {
			a.join = nil
		}
		return a, a.showProjects("")

	case views.OpenOrganizations:
		return a, a.openModal(views.NewOrgModal(a.opts.Store))

	case views.OpenInvite:
		o, ok := a.currentOrg()
		if !ok {
			return a, nil
		}
		return a, a.openModal(views.NewInviteModal(a.opts.Store, o.Name, a.opts.LinkBase, a.opts.InviteOptions...))

	case views.CloseModal:
		a.closeModal()
		return a, nil

	case views.OrganizationAdded:
		a.closeModal()
		if a.screen == screen(a.join) {
			a.join.Close()
			a.join = nil
			a.screen = nil
		}
		a.opts.Orgs.Select(msg.Org.ID)
		if orgs, _, ok := a.opts.Store.Cache().Organizations(); ok {
			a.orgs = orgs
		} else {
			a.orgs = append(a.orgs, msg.Org)
		}
		return a, a.showProjects(msg.Message)

	case views.SwitchOrganization:
		before := a.opts.Orgs.Current()
		if a.opts.Orgs.Next(a.orgs) == before {
			return a, nil
		}
		return a, a.showProjects("")

	case views.LogoutRequested:
		a.closeModal()
		a.show(nil)
		a.loading = true
		return a, func() tea.Msg {
			a.opts.Session.Logout(context.Background())
			return loggedOutMsg{}
		}

	case loggedOutMsg:
		return a, a.showLogin("")

	case views.SessionExpired:
		if _, ok := a.screen.(*views.LoginView); ok {
			return a, nil
		}
		a.opts.Session.Expire(msg.Err)
		return a, a.showLogin(apperr.UserMessage(msg.Err))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.modal != nil {
			_, cmd := a.modal.Update(msg)
			return a, cmd
		}
		if a.screen != nil {
			_, cmd := a.screen.Update(msg)
			return a, cmd
		}
		return a, a.updateIdle(msg)
	}

	var cmds []tea.Cmd
	if a.modal != nil {
		_, cmd := a.modal.Update(msg)
		cmds = append(cmds, cmd)
	}
	if a.screen != nil {
		_, cmd := a.screen.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// updateIdle handles keys when no screen is shown: the welcome screen for
// users without an organization and the organization load error
func (a *App) updateIdle(msg tea.KeyMsg) tea.Cmd {
	if a.loading {
		return nil
	}
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Reload):
		return a.signedIn()
	case key.Matches(msg, a.keys.Organizations), key.Matches(msg, a.keys.Enter):
		return a.openModal(views.NewOrgModal(a.opts.Store))
	case key.Matches(msg, a.keys.Logout):
		return func() tea.Msg { return views.LogoutRequested{} }
	}
	return nil
}

// View renders the app
func (a *App) View() string {
	body := a.body()
	if a.opts.Session.State() != session.StateAuthenticated {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.renderBar(), body)
}

func (a *App) body() string {
	if a.modal != nil {
		return a.modal.View()
	}
	if a.screen != nil {
		return a.screen.View()
	}
	if a.loading {
		return styles.CenterView(a.spinner.View()+" Loading...", a.width, a.height)
	}
	if a.loadErr != nil {
		return a.renderNotice("Could not load organizations", apperr.UserMessage(a.loadErr), "Press r to retry • q to quit")
	}
	return a.renderNotice("No Organization",
		"You are not a member of any organization yet.",
		"Press o to create or join one • L to log out • q to quit")
}

func (a *App) renderBar() string {
	s := a.styles
	parts := []string{s.Title.Render("ProjectHub")}
	if o, ok := a.currentOrg(); ok {
		label := o.Name
		if len(a.orgs) > 1 {
			label += s.TitleMuted.Render(" (O to switch)")
		}
		parts = append(parts, label)
	}
	if u := a.opts.Session.User(); u != nil {
		parts = append(parts, s.TitleMuted.Render(u.DisplayName()))
	}
	bar := parts[0]
	for _, p := range parts[1:] {
		bar += s.TitleMuted.Render(" • ") + p
	}
	return styles.CenterView(s.StatusBar.Render(bar), a.width, 1)
}

func (a *App) renderNotice(title, text, help string) string {
	s := a.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render(title),
		"",
		text,
		"",
		s.TitleMuted.Render(help),
	)
	return styles.Modal(s, content, a.width, a.height-2)
}
