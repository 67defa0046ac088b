package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
)

type projectLoadedMsg struct {
	view    int64
	project models.Project
	err     error
}

type projectSavedMsg struct {
	view int64
	err  error
}

type taskSavedMsg struct {
	view int64
	err  error
}

type statusSentMsg struct {
	view   int64
	taskID string
	err    error
}

// ProjectView shows one project with its statistics and tasks
type ProjectView struct {
	scope
	store     *store.Store
	projectID string
	author    string
	styles    *styles.Styles
	keys      keys.KeyMap
	bar       progress.Model

	project models.Project
	loaded  bool
	err     error
	notice  string

	width   int
	height  int
	cursor  int
	scrollY int

	editingTask    *taskEditor
	editingProject *projectEditor
	detail         *taskDetail

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewProjectView creates the detail view for project id. author signs
// new comments.
func NewProjectView(st *store.Store, id, author string) *ProjectView {
	return &ProjectView{
		scope:     newScope(),
		store:     st,
		projectID: id,
		author:    author,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		bar: progress.New(
			progress.WithSolidFill(string(styles.Current.Success)),
			progress.WithoutPercentage(),
		),
	}
}

// ProjectID returns the project shown
func (v *ProjectView) ProjectID() string { return v.projectID }

// Init initializes the view
func (v *ProjectView) Init() tea.Cmd {
	if p, ok := v.store.CachedProject(v.projectID); ok && p.Tasks != nil {
		v.setProject(p)
	}
	return v.load(false)
}

func (v *ProjectView) load(reload bool) tea.Cmd {
	id, ctx, projectID := v.id, v.ctx, v.projectID
	return func() tea.Msg {
		var p models.Project
		var err error
		if reload {
			p, err = v.store.ReloadProject(ctx, projectID)
		} else {
			p, err = v.store.Project(ctx, projectID)
		}
		return projectLoadedMsg{view: id, project: p, err: err}
	}
}

func (v *ProjectView) setProject(p models.Project) {
	v.project = p
	v.loaded = true
	if v.cursor >= len(p.Tasks) {
		v.cursor = max(0, len(p.Tasks)-1)
	}
	if v.detail != nil {
		v.detail.sync(p)
	}
}

// refresh re-reads the project from the cache, including optimistic state
func (v *ProjectView) refresh() {
	if p, ok := v.store.CachedProject(v.projectID); ok {
		v.setProject(p)
	}
}

func (v *ProjectView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.project.Tasks) {
		return models.Task{}, false
	}
	return v.project.Tasks[v.cursor], true
}

// cycleStatus shows the new status at once and sends it in the background
func (v *ProjectView) cycleStatus(taskID string, to models.TaskStatus) tea.Cmd {
	ch, err := v.store.BeginTaskStatus(taskID, to)
	if errors.Is(err, cache.ErrFieldBusy) {
		v.notice = "Status change still in progress"
		return nil
	}
	if err != nil {
		v.notice = userMessage(err)
		return nil
	}
	v.notice = ""
	v.refresh()

	id, ctx := v.id, v.ctx
	return func() tea.Msg {
		return statusSentMsg{view: id, taskID: taskID, err: ch.Send(ctx)}
	}
}

func (v *ProjectView) submitTask() tea.Cmd {
	e := v.editingTask
	e.collect()
	if !e.form.Begin() {
		return nil
	}
	id, ctx, in := v.id, v.ctx, e.form.Input()
	taskID, projectID, editing := e.form.ID(), e.form.ProjectID(), e.form.Editing()
	return func() tea.Msg {
		var err error
		if editing {
			_, err = v.store.UpdateTask(ctx, taskID, in)
		} else {
			_, err = v.store.CreateTask(ctx, projectID, in)
		}
		return taskSavedMsg{view: id, err: err}
	}
}

func (v *ProjectView) submitProject() tea.Cmd {
	e := v.editingProject
	e.collect()
	if !e.form.Begin() {
		return nil
	}
	id, ctx, in, projectID := v.id, v.ctx, e.form.Input(), e.form.ID()
	return func() tea.Msg {
		_, err := v.store.UpdateProject(ctx, projectID, in)
		return projectSavedMsg{view: id, err: err}
	}
}

// Update handles messages
func (v *ProjectView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.bar.Width = clamp(styles.ContentWidth(v.width)-30, 10, 40)
		if v.detail != nil {
			v.detail.resize(v.width)
		}
		return v, nil

	case projectLoadedMsg:
		if !v.owns(msg.view) || dropped(msg.err) {
			return v, nil
		}
		if msg.err != nil {
			if v.loaded {
				v.notice = userMessage(msg.err)
			} else {
				v.err = msg.err
			}
			return v, expired(msg.err)
		}
		v.err = nil
		v.setProject(msg.project)
		return v, nil

	case statusSentMsg:
		if !v.owns(msg.view) || dropped(msg.err) {
			return v, nil
		}
		v.refresh()
		if msg.err != nil {
			v.notice = userMessage(msg.err)
			return v, expired(msg.err)
		}
		return v, nil

	case taskSavedMsg:
		if !v.owns(msg.view) || v.editingTask == nil || dropped(msg.err) {
			return v, nil
		}
		v.editingTask.form.Finish(msg.err)
		if msg.err != nil {
			return v, expired(msg.err)
		}
		v.editingTask = nil
		v.refresh()
		return v, nil

	case projectSavedMsg:
		if !v.owns(msg.view) || v.editingProject == nil || dropped(msg.err) {
			return v, nil
		}
		v.editingProject.form.Finish(msg.err)
		if msg.err != nil {
			return v, expired(msg.err)
		}
		v.editingProject = nil
		v.refresh()
		return v, nil

	case commentSentMsg:
		if !v.owns(msg.view) || dropped(msg.err) {
			return v, nil
		}
		v.refresh()
		if d := v.detail; d != nil && d.taskID == msg.taskID {
			d.form.Finish(msg.err)
			if msg.err != nil && d.input.Value() == "" {
				d.input.SetValue(d.form.Content)
			}
		}
		return v, expired(msg.err)

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.editingTask != nil {
			return v, v.updateEditor(msg, v.editingTask.editor, v.editingTask.form.Submitting(),
				func() { v.editingTask = nil }, v.submitTask)
		}
		if v.editingProject != nil {
			return v, v.updateEditor(msg, v.editingProject.editor, v.editingProject.form.Submitting(),
				func() { v.editingProject = nil }, v.submitProject)
		}
		if v.detail != nil {
			return v.updateDetail(msg)
		}
		return v.updateNormal(msg)
	}

	switch {
	case v.editingTask != nil:
		return v, v.editingTask.updateInput(msg)
	case v.editingProject != nil:
		return v, v.editingProject.updateInput(msg)
	case v.detail != nil:
		return v, v.detail.updateInput(msg)
	}
	return v, nil
}

func (v *ProjectView) updateEditor(msg tea.KeyMsg, e *editor, busy bool, closeFn func(), submit func() tea.Cmd) tea.Cmd {
	action, cmd := e.update(msg, busy)
	switch action {
	case editorCancel:
		if !busy {
			closeFn()
		}
		return nil
	case editorSubmit:
		return submit()
	}
	return cmd
}

func (v *ProjectView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.err != nil {
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			return v, emit(BackToProjects{})
		case key.Matches(msg, v.keys.Reload):
			v.err = nil
			return v, v.load(true)
		}
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, emit(BackToProjects{})

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.project.Tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.StatusNext):
		if t, ok := v.selected(); ok {
			return v, v.cycleStatus(t.ID, t.Status.Next())
		}
		return v, nil

	case key.Matches(msg, v.keys.StatusPrev):
		if t, ok := v.selected(); ok {
			return v, v.cycleStatus(t.ID, t.Status.Prev())
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if t, ok := v.selected(); ok {
			v.detail = newTaskDetail(t, v.author, v.styles)
			v.detail.resize(v.width)
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		if !v.loaded {
			return v, nil
		}
		v.editingTask = newTaskEditor(forms.NewTaskForm(v.projectID), v.styles)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		if t, ok := v.selected(); ok {
			v.editingTask = newTaskEditor(forms.EditTaskForm(v.projectID, t), v.styles)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.EditProject):
		if v.loaded {
			v.editingProject = newProjectEditor(forms.EditProjectForm(v.project), v.styles)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.Reload):
		v.notice = ""
		return v, v.load(true)

	case key.Matches(msg, v.keys.Invite):
		return v, emit(OpenInvite{})

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *ProjectView) visibleItems() int {
	// Each task item is 2 lines + 1 margin
	return max((v.height-14)/3, 1)
}

func (v *ProjectView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	}
	if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

// View renders the view
func (v *ProjectView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.editingTask != nil {
		return v.editingTask.render(v.width, v.height)
	}
	if v.editingProject != nil {
		return v.editingProject.render(v.width, v.height)
	}
	if v.err != nil {
		return v.renderError()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading project...")
	}
	if v.detail != nil {
		return v.detail.view(v.store.Cache(), v.width, v.height)
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	if v.notice != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(v.notice))
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *ProjectView) renderHeader() string {
	s := v.styles
	p := v.project

	title := lipgloss.JoinHorizontal(lipgloss.Center,
		s.Title.Render(p.Name), "  ", projectBadge(s, p.Status))

	var meta []string
	if p.DueDate != "" {
		meta = append(meta, "due "+p.DueDate)
	}
	if p.Description != "" {
		meta = append(meta, p.Description)
	}

	rows := []string{title}
	if len(meta) > 0 {
		rows = append(rows, s.TitleMuted.Width(styles.ContentWidth(v.width)-4).Render(strings.Join(meta, " • ")))
	}
	rows = append(rows, "", v.renderStats())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *ProjectView) renderStats() string {
	st := v.project.Statistics
	if st == nil {
		computed := models.ComputeStatistics(v.project.Tasks)
		st = &computed
	}
	pct := st.CompletionPercentage / 100
	return lipgloss.JoinHorizontal(lipgloss.Center,
		v.bar.ViewAs(pct),
		"  ",
		v.styles.StatusBar.Render(fmt.Sprintf("%.0f%% • %d total • %d done • %d pending",
			st.CompletionPercentage, st.TotalTasks, st.CompletedTasks, st.PendingTasks)),
	)
}

func (v *ProjectView) renderTaskList() string {
	s := v.styles
	tasks := v.project.Tasks

	if len(tasks) == 0 {
		return s.TitleMuted.Render("No tasks yet. Press 'n' to create one.")
	}

	end := min(v.scrollY+v.visibleItems(), len(tasks))
	var items []string
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.renderTaskItem(tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *ProjectView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	status := statusBadge(s, task.Status)
	if v.store.Cache().IsProvisional(cache.Ref{Type: cache.TypeTask, ID: task.ID}, "status") {
		status += s.Pending.Render(" (saving)")
	}
	meta := status + "  " + priorityBadge(s, task.Priority)
	if task.DueDate != "" {
		meta += s.TitleMuted.Render("  due " + task.DueDate)
	}
	if n := len(task.Comments); n > 0 {
		meta += s.TitleMuted.Render(fmt.Sprintf("  %d comment%s", n, plural(n)))
	}

	titleStyle := s.ListItem.Width(width)
	metaStyle := s.ListItem.Width(width)
	if selected {
		titleStyle = s.ListSelected.Width(width)
		metaStyle = s.ListSelected.Width(width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(task.Title), metaStyle.Render(meta)) + "\n"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (v *ProjectView) renderError() string {
	s := v.styles
	title := "Could not load project"
	if apperr.IsErrorType(v.err, apperr.ErrorTypeNotFound) {
		title = "Project not found"
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(title),
		"",
		s.Error.Render(userMessage(v.err)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Retry (r) "),
			"  ",
			s.Button.Render(" Back (esc) "),
		),
	)
	return styles.Modal(s, content, v.width, v.height)
}

func (v *ProjectView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s status • %s new • %s edit • %s edit project • %s back • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("E"),
			v.styles.HelpKey.Render("esc"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *ProjectView) renderHelpPopup() string {
	s := v.styles

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task and comments",
		s.HelpKey.Render("space") + "  next status",
		s.HelpKey.Render("S") + "      previous status",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("E") + "      edit project",
		s.HelpKey.Render("r") + "      reload",
		s.HelpKey.Render("i") + "      invite a member",
		s.HelpKey.Render("esc") + "    back",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)
	return styles.Modal(s, content, v.width, v.height)
}
