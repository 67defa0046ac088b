package views

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/cache"
	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/ui/styles"
)

type commentSentMsg struct {
	view   int64
	taskID string
	err    error
}

// taskDetail shows one task with its comments and the comment input
type taskDetail struct {
	taskID  string
	task    models.Task
	form    *forms.CommentForm
	input   textarea.Model
	author  textinput.Model
	focused bool
	onName  bool // the author field has focus
	styles  *styles.Styles
}

func newTaskDetail(t models.Task, author string, s *styles.Styles) *taskDetail {
	input := textarea.New()
	input.Placeholder = "Add a comment..."
	input.CharLimit = 2000
	input.SetWidth(50)
	input.SetHeight(3)
	input.ShowLineNumbers = false

	name := textinput.New()
	name.Placeholder = "Your name (optional)"
	name.CharLimit = 100
	name.SetValue(author)

	form := forms.NewCommentForm(t.ID)
	form.AuthorName = author

	return &taskDetail{taskID: t.ID, task: t, form: form, input: input, author: name, styles: s}
}

// focus moves the cursor to the comment body or the author field
func (d *taskDetail) focus(onName bool) tea.Cmd {
	d.focused = true
	d.onName = onName
	if onName {
		d.input.Blur()
		return d.author.Focus()
	}
	d.author.Blur()
	return d.input.Focus()
}

func (d *taskDetail) blur() {
	d.focused = false
	d.onName = false
	d.input.Blur()
	d.author.Blur()
}

func (d *taskDetail) resize(width int) {
	d.input.SetWidth(clamp(styles.ContentWidth(width)-10, 20, 50))
}

// sync picks up the task from a fresher copy of its project
func (d *taskDetail) sync(p models.Project) {
	for _, t := range p.Tasks {
		if t.ID == d.taskID {
			d.task = t
			return
		}
	}
}

func (d *taskDetail) updateInput(msg tea.Msg) tea.Cmd {
	if !d.focused {
		return nil
	}
	var cmd tea.Cmd
	if d.onName {
		d.author, cmd = d.author.Update(msg)
	} else {
		d.input, cmd = d.input.Update(msg)
	}
	return cmd
}

func (v *ProjectView) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := v.detail
	if d.focused {
		switch {
		case key.Matches(msg, v.keys.Back):
			d.blur()
			return v, nil
		case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.ShiftTab):
			return v, d.focus(!d.onName)
		case key.Matches(msg, v.keys.Submit):
			return v, v.submitComment()
		}
		return v, d.updateInput(msg)
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.detail = nil
		return v, nil
	case msg.String() == "c":
		return v, tea.Batch(d.focus(false), textinput.Blink)
	case key.Matches(msg, v.keys.StatusNext):
		return v, v.cycleStatus(d.task.ID, d.task.Status.Next())
	case key.Matches(msg, v.keys.StatusPrev):
		return v, v.cycleStatus(d.task.ID, d.task.Status.Prev())
	case key.Matches(msg, v.keys.Edit):
		v.editingTask = newTaskEditor(forms.EditTaskForm(v.projectID, d.task), v.styles)
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	}
	return v, nil
}

// submitComment inserts a provisional comment and sends it in the background
func (v *ProjectView) submitComment() tea.Cmd {
	d := v.detail
	d.form.Content = d.input.Value()
	d.form.AuthorName = d.author.Value()
	if !d.form.Begin() {
		return nil
	}
	in := d.form.Input()
	taskID := d.taskID

	ch, err := v.store.BeginComment(taskID, in)
	if err != nil && !errors.Is(err, cache.ErrNotCached) {
		d.form.Finish(err)
		return nil
	}
	d.input.Reset()
	v.refresh()

	id, ctx := v.id, v.ctx
	return func() tea.Msg {
		if ch == nil {
			_, err := v.store.AddTaskComment(ctx, taskID, in)
			return commentSentMsg{view: id, taskID: taskID, err: err}
		}
		return commentSentMsg{view: id, taskID: taskID, err: ch.Send(ctx)}
	}
}

func (d *taskDetail) view(c *cache.Cache, width, height int) string {
	s := d.styles
	t := d.task
	textWidth := clamp(styles.ContentWidth(width)-10, 20, 70)
	labelStyle := s.Label

	desc := t.Description
	if desc == "" {
		desc = s.TitleMuted.Render("No description")
	}
	due := t.DueDate
	if due == "" {
		due = "None"
	}

	var comments []string
	if len(t.Comments) == 0 {
		comments = append(comments, s.TitleMuted.Render("No comments yet"))
	}
	for _, cm := range t.Comments {
		header := cm.AuthorName + " • " + cm.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM")
		if c.IsProvisional(cache.Ref{Type: cache.TypeComment, ID: cm.ID}, "insert") {
			header += s.Pending.Render(" (sending)")
		}
		comments = append(comments, lipgloss.JoinVertical(lipgloss.Left,
			s.TitleMuted.Render(header),
			lipgloss.NewStyle().Width(textWidth).Render(cm.Content),
			"",
		))
	}

	inputStyle := s.Input
	if d.focused {
		inputStyle = s.InputFocused
	}

	var help string
	if d.focused {
		help = s.Help.Render(fmt.Sprintf("%s submit • %s author • %s cancel",
			s.HelpKey.Render("ctrl+s"), s.HelpKey.Render("tab"), s.HelpKey.Render("esc")))
	} else {
		help = s.Help.Render(fmt.Sprintf("%s comment • %s status • %s edit • %s back",
			s.HelpKey.Render("c"), s.HelpKey.Render("space"),
			s.HelpKey.Render("e"), s.HelpKey.Render("esc")))
	}

	rows := []string{
		s.Title.MarginBottom(1).Render(t.Title),
		labelStyle.Render("Status") + "  " + statusBadge(s, t.Status) +
			"    " + labelStyle.Render("Priority") + "  " + priorityBadge(s, t.Priority) +
			"    " + labelStyle.Render("Due") + "  " + due,
		"",
		labelStyle.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(desc),
		"",
		labelStyle.Render(fmt.Sprintf("Comments (%d)", len(t.Comments))),
	}
	rows = append(rows, comments...)
	nameStyle := s.Input
	if d.focused && d.onName {
		nameStyle = s.InputFocused
		inputStyle = s.Input
	}
	rows = append(rows,
		labelStyle.Render("Author")+"  "+nameStyle.Render(d.author.View()),
		inputStyle.Render(d.input.View()),
	)
	if msg := d.form.Message(); msg != "" {
		rows = append(rows, s.Error.Render(msg))
	} else if d.form.Submitting() {
		rows = append(rows, s.Pending.Render("Posting comment..."))
	}
	rows = append(rows, help)

	// Return with padding, not centered vertically, but horizontally centered if wide
	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return styles.CenterView(padded, width, height)
}
