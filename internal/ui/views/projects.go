package views

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
)

type projectItem struct {
	project models.Project
}

func (i projectItem) Title() string       { return i.project.Name }
func (i projectItem) Description() string { return i.project.Description }
func (i projectItem) FilterValue() string { return i.project.Name }

func progressLine(st *models.Statistics) string {
	if st == nil || st.TotalTasks == 0 {
		return "no tasks"
	}
	return fmt.Sprintf("%d/%d done (%.0f%%)", st.CompletedTasks, st.TotalTasks, st.CompletionPercentage)
}

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, metaStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		metaStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		metaStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	meta := p.project.Status.Label() + " • " + progressLine(p.project.Statistics)
	if p.project.DueDate != "" {
		meta += " • due " + p.project.DueDate
	}

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(p.Title()), metaStyle.Render(meta))
}

type projectsLoadedMsg struct {
	view     int64
	projects []models.Project
	err      error
}

type projectCreatedMsg struct {
	view    int64
	project *models.Project
	err     error
}

// ProjectListView lists the active organization's projects
type ProjectListView struct {
	scope
	store    *store.Store
	list     list.Model
	delegate *projectDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	loading  bool
	err      error
	notice   string

	creating *projectEditor

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewProjectListView creates the project list. notice is shown once above
// the list, e.g. after joining an organization.
func NewProjectListView(st *store.Store, notice string) *ProjectListView {
	s := styles.NewStyles()

	delegate := &projectDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ProjectListView{
		scope:    newScope(),
		store:    st,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		notice:   notice,
	}
}

// Init initializes the view
func (v *ProjectListView) Init() tea.Cmd {
	return v.load(false)
}

func (v *ProjectListView) load(reload bool) tea.Cmd {
	v.loading = true
	id, ctx := v.id, v.ctx
	return func() tea.Msg {
		var projects []models.Project
		var err error
		if reload {
			projects, err = v.store.ReloadProjects(ctx)
		} else {
			projects, err = v.store.Projects(ctx)
		}
		return projectsLoadedMsg{view: id, projects: projects, err: err}
	}
}

func (v *ProjectListView) startCreate() tea.Cmd {
	v.creating = newProjectEditor(forms.NewProjectForm(), v.styles)
	return textinput.Blink
}

func (v *ProjectListView) submitCreate() tea.Cmd {
	e := v.creating
	e.collect()
	if !e.form.Begin() {
		return nil
	}
	id, ctx, in := v.id, v.ctx, e.form.Input()
	return func() tea.Msg {
		p, err := v.store.CreateProject(ctx, in)
		return projectCreatedMsg{view: id, project: p, err: err}
	}
}

// Update handles messages
func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Use content width (capped at MaxWidth) for internal layout
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-8)
		return v, nil

	case projectsLoadedMsg:
		if !v.owns(msg.view) || dropped(msg.err) {
			return v, nil
		}
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, expired(msg.err)
		}
		v.err = nil
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = projectItem{project: p}
		}
		v.loaded = true
		return v, v.list.SetItems(items)

	case projectCreatedMsg:
		if !v.owns(msg.view) || v.creating == nil || dropped(msg.err) {
			return v, nil
		}
		v.creating.form.Finish(msg.err)
		if msg.err != nil {
			return v, expired(msg.err)
		}
		v.creating = nil
		return v, emit(OpenProject{ID: msg.project.ID})

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.creating != nil {
			action, cmd := v.creating.update(msg, v.creating.form.Submitting())
			switch action {
			case editorCancel:
				if !v.creating.form.Submitting() {
					v.creating = nil
				}
				return v, nil
			case editorSubmit:
				return v, v.submitCreate()
			}
			return v, cmd
		}

		if v.list.FilterState() == list.Filtering {
			break
		}

		v.notice = ""
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			// Don't quit on escape in project list - only q quits
			if v.list.FilterState() == list.FilterApplied {
				v.list.ResetFilter()
			}
			return v, nil
		case key.Matches(msg, v.keys.New):
			return v, v.startCreate()
		case key.Matches(msg, v.keys.Reload):
			v.err = nil
			return v, v.load(true)
		case key.Matches(msg, v.keys.Organizations):
			return v, emit(OpenOrganizations{})
		case key.Matches(msg, v.keys.SwitchOrg):
			return v, emit(SwitchOrganization{})
		case key.Matches(msg, v.keys.Invite):
			return v, emit(OpenInvite{})
		case key.Matches(msg, v.keys.Logout):
			return v, emit(LogoutRequested{})
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, emit(OpenProject{ID: item.project.ID})
			}
			if v.loaded && len(v.list.Items()) == 0 {
				return v, v.startCreate()
			}
			return v, nil
		}
	}

	if v.creating != nil {
		return v, v.creating.updateInput(msg)
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View renders the view
func (v *ProjectListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.creating != nil {
		return v.creating.render(v.width, v.height)
	}

	if v.err != nil {
		return v.renderError()
	}

	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading projects...")
	}

	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n" + v.renderHelp()
	if v.notice != "" {
		content = v.styles.Success.Render(v.notice) + "\n" + content
	}
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectListView) renderError() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Could not load projects"),
		"",
		s.Error.Render(userMessage(v.err)),
		"",
		s.ButtonPrimary.Render(" Retry (r) "),
	)
	centered := lipgloss.Place(styles.ContentWidth(v.width), v.height-4,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	rows := []string{}
	if v.notice != "" {
		rows = append(rows, s.Success.Render(v.notice), "")
	}
	rows = append(rows,
		s.Title.Render("No Projects"),
		"",
		s.TitleMuted.Render("Get started by creating your first project"),
		"",
		s.ButtonPrimary.Render(" Create Project "),
		"",
		s.TitleMuted.Render("Press 'n' or enter to create • 'o' organizations • 'q' quit"),
	)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s new • %s filter • %s orgs • %s invite • %s reload • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("o"),
			v.styles.HelpKey.Render("i"),
			v.styles.HelpKey.Render("r"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *ProjectListView) renderHelpPopup() string {
	s := v.styles

	helpItems := []string{
		s.HelpKey.Render("↵") + "      open project",
		s.HelpKey.Render("n") + "      new project",
		s.HelpKey.Render("/") + "      filter",
		s.HelpKey.Render("r") + "      reload",
		s.HelpKey.Render("o") + "      create or join organization",
		s.HelpKey.Render("O") + "      switch organization",
		s.HelpKey.Render("i") + "      invite a member",
		s.HelpKey.Render("L") + "      log out",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)
	return styles.Modal(s, content, v.width, v.height)
}
