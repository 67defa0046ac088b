package views

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
)

// field is a text input, or an enum choice when next is set
type field struct {
	label string
	input textinput.Model
	next  func()
	shown func() string
}

func textField(label, placeholder, value string, limit int) field {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.SetValue(value)
	return field{label: label, input: in}
}

func secretField(label string) field {
	f := textField(label, label, "", 128)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func choiceField(label string, next func(), shown func() string) field {
	return field{label: label, next: next, shown: shown}
}

type editorAction int

const (
	editorNone editorAction = iota
	editorSubmit
	editorCancel
)

// editor lays out fields followed by a submit button
type editor struct {
	title  string
	button string
	fields []field
	focus  int // len(fields) is the button
	styles *styles.Styles
	keys   keys.KeyMap
}

func newEditor(title, button string, s *styles.Styles, fields ...field) *editor {
	e := &editor{title: title, button: button, fields: fields, styles: s, keys: keys.DefaultKeyMap()}
	e.updateFocus()
	return e
}

func (e *editor) value(i int) string { return e.fields[i].input.Value() }

func (e *editor) setValue(i int, v string) { e.fields[i].input.SetValue(v) }

func (e *editor) updateFocus() {
	for i := range e.fields {
		e.fields[i].input.Blur()
	}
	if e.focus < len(e.fields) && e.fields[e.focus].next == nil {
		e.fields[e.focus].input.Focus()
	}
}

func (e *editor) move(dir int) {
	n := len(e.fields) + 1
	e.focus = (e.focus + dir + n) % n
	e.updateFocus()
}

// update handles a key while the editor is open. busy disables submitting.
func (e *editor) update(msg tea.KeyMsg, busy bool) (editorAction, tea.Cmd) {
	switch {
	case key.Matches(msg, e.keys.Back):
		return editorCancel, nil
	case key.Matches(msg, e.keys.Submit):
		if busy {
			return editorNone, nil
		}
		return editorSubmit, nil
	case key.Matches(msg, e.keys.ShiftTab):
		e.move(-1)
		return editorNone, nil
	case key.Matches(msg, e.keys.Tab):
		e.move(1)
		return editorNone, nil
	case key.Matches(msg, e.keys.Enter):
		if e.focus == len(e.fields) {
			if busy {
				return editorNone, nil
			}
			return editorSubmit, nil
		}
		e.move(1)
		return editorNone, nil
	}

	if e.focus == len(e.fields) {
		return editorNone, nil
	}
	f := &e.fields[e.focus]
	if f.next != nil {
		switch msg.String() {
		case " ", "right", "l":
			f.next()
		}
		return editorNone, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return editorNone, cmd
}

// updateInput forwards non-key messages, such as cursor blinks, to the
// focused text field
func (e *editor) updateInput(msg tea.Msg) tea.Cmd {
	if e.focus >= len(e.fields) || e.fields[e.focus].next != nil {
		return nil
	}
	var cmd tea.Cmd
	e.fields[e.focus].input, cmd = e.fields[e.focus].input.Update(msg)
	return cmd
}

func (e *editor) view(width, height int, errMsg string, busy bool) string {
	s := e.styles
	inputWidth := clamp(styles.ContentWidth(width)-10, 20, 50)

	rows := []string{s.Title.Render(e.title), ""}
	for i, f := range e.fields {
		style := s.Input
		if i == e.focus {
			style = s.InputFocused
		}
		rows = append(rows, s.Label.Render(f.label+":"))
		if f.next != nil {
			rows = append(rows, style.Width(inputWidth).Render("◂ "+f.shown()+" ▸"))
		} else {
			rows = append(rows, style.Width(inputWidth).Render(f.input.View()))
		}
	}

	btnStyle := s.Button
	if e.focus == len(e.fields) {
		btnStyle = s.ButtonFocused
	}
	label := " " + e.button + " "
	if busy {
		label = " Saving... "
	}
	rows = append(rows, "", btnStyle.Render(label))
	if errMsg != "" {
		rows = append(rows, "", s.Error.Render(errMsg))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • Space: change option • Ctrl+S: save • Esc: cancel"))

	return styles.Modal(s, lipgloss.JoinVertical(lipgloss.Left, rows...), width, height)
}

// projectEditor edits a forms.ProjectForm
type projectEditor struct {
	*editor
	form *forms.ProjectForm
}

func newProjectEditor(f *forms.ProjectForm, s *styles.Styles) *projectEditor {
	button := "Create"
	if f.Editing() {
		button = "Save"
	}
	return &projectEditor{
		form: f,
		editor: newEditor(f.Title(), button, s,
			textField("Name", "Project name", f.Draft.Name, 100),
			textField("Description", "Description (optional)", f.Draft.Description, 500),
			choiceField("Status",
				func() { f.Draft.Status = f.Draft.Status.Next() },
				func() string { return f.Draft.Status.Label() }),
			textField("Due date", "YYYY-MM-DD", f.Draft.DueDate, 10),
		),
	}
}

// collect copies the inputs into the draft
func (e *projectEditor) collect() {
	e.form.Draft.Name = e.value(0)
	e.form.Draft.Description = e.value(1)
	e.form.Draft.DueDate = e.value(3)
}

func (e *projectEditor) render(width, height int) string {
	return e.view(width, height, e.form.Message(), e.form.Submitting())
}

// taskEditor edits a forms.TaskForm
type taskEditor struct {
	*editor
	form *forms.TaskForm
}

func newTaskEditor(f *forms.TaskForm, s *styles.Styles) *taskEditor {
	button := "Create"
	if f.Editing() {
		button = "Save"
	}
	return &taskEditor{
		form: f,
		editor: newEditor(f.Title(), button, s,
			textField("Title", "Task title", f.Draft.Title, 200),
			textField("Description", "Description (optional)", f.Draft.Description, 1000),
			choiceField("Status",
				func() { f.Draft.Status = f.Draft.Status.Next() },
				func() string { return f.Draft.Status.Label() }),
			choiceField("Priority",
				func() { f.Draft.Priority = f.Draft.Priority.Next() },
				func() string { return f.Draft.Priority.Label() }),
			textField("Due date", "YYYY-MM-DD", f.Draft.DueDate, 10),
		),
	}
}

func (e *taskEditor) collect() {
	e.form.Draft.Title = e.value(0)
	e.form.Draft.Description = e.value(1)
	e.form.Draft.DueDate = e.value(4)
}

func (e *taskEditor) render(width, height int) string {
	return e.view(width, height, e.form.Message(), e.form.Submitting())
}

// statusBadge renders a colored task status label
func statusBadge(s *styles.Styles, st models.TaskStatus) string {
	return s.Badge.Foreground(styles.TaskStatusColor(st)).Render(st.Label())
}

func priorityBadge(s *styles.Styles, p models.TaskPriority) string {
	return s.Badge.Foreground(styles.PriorityColor(p)).Render(p.Label())
}

func projectBadge(s *styles.Styles, st models.ProjectStatus) string {
	return s.Badge.Foreground(styles.ProjectStatusColor(st)).Render(st.Label())
}
