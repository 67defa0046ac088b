package views

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
)

type inviteSentMsg struct {
	view int64
	code string
	err  error
}

// copiedExpiredMsg redraws once a "Copied!" acknowledgement lapses
type copiedExpiredMsg struct{ view int64 }

// InviteModal issues an invite code for the active organization
type InviteModal struct {
	scope
	store   *store.Store
	orgName string
	form    *forms.InviteForm
	editor  *editor
	copyErr string
	styles  *styles.Styles
	keys    keys.KeyMap
	width   int
	height  int
}

// NewInviteModal builds join links under linkBase
func NewInviteModal(st *store.Store, orgName, linkBase string, opts ...forms.InviteOption) *InviteModal {
	s := styles.NewStyles()
	return &InviteModal{
		scope:   newScope(),
		store:   st,
		orgName: orgName,
		form:    forms.NewInviteForm(linkBase, opts...),
		editor: newEditor("Invite to "+orgName, "Send Invite", s,
			textField("Email", "name@example.com", "", 254),
		),
		styles: s,
		keys:   keys.DefaultKeyMap(),
	}
}

// Init initializes the view
func (m *InviteModal) Init() tea.Cmd { return textinput.Blink }

func (m *InviteModal) submit() tea.Cmd {
	m.form.Email = m.editor.value(0)
	if !m.form.Begin() {
		return nil
	}
	id, ctx, email := m.id, m.ctx, m.form.EmailValue()
	return func() tea.Msg {
		code, err := m.store.Invite(ctx, email)
		return inviteSentMsg{view: id, code: code, err: err}
	}
}

func (m *InviteModal) copy(target forms.CopyTarget) tea.Cmd {
	if err := m.form.Copy(target); err != nil {
		m.copyErr = "Could not copy to clipboard: " + err.Error()
		return nil
	}
	m.copyErr = ""
	id := m.id
	return tea.Tick(forms.CopiedFor, func(time.Time) tea.Msg { return copiedExpiredMsg{view: id} })
}

// Update handles messages
func (m *InviteModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case inviteSentMsg:
		if !m.owns(msg.view) || dropped(msg.err) {
			return m, nil
		}
		m.form.Finish(msg.code, msg.err)
		return m, expired(msg.err)

	case copiedExpiredMsg:
		// Copied() re-checks the clock on render
		return m, nil

	case tea.KeyMsg:
		if m.form.Code() != "" {
			switch {
			case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Enter):
				return m, emit(CloseModal{})
			case key.Matches(msg, m.keys.CopyCode):
				return m, m.copy(forms.CopyCode)
			case key.Matches(msg, m.keys.CopyLink):
				return m, m.copy(forms.CopyLink)
			case key.Matches(msg, m.keys.Another):
				m.form.Another()
				m.copyErr = ""
				m.editor.setValue(0, "")
				return m, textinput.Blink
			}
			return m, nil
		}

		action, cmd := m.editor.update(msg, m.form.Submitting())
		switch action {
		case editorCancel:
			if m.form.Submitting() {
				return m, nil
			}
			return m, emit(CloseModal{})
		case editorSubmit:
			return m, m.submit()
		}
		return m, cmd
	}
	return m, m.editor.updateInput(msg)
}

// View renders the view
func (m *InviteModal) View() string {
	if m.form.Code() == "" {
		return m.editor.view(m.width, m.height, m.form.Message(), m.form.Submitting())
	}

	s := m.styles
	ack := func(t forms.CopyTarget, label string) string {
		if m.form.Copied(t) {
			return s.Success.Render("Copied!")
		}
		return s.Button.Render(label)
	}

	rows := []string{
		s.Success.Render("Invite created"),
		"",
		s.Label.Render("Share this code with " + m.form.EmailValue() + ":"),
		s.Panel.Render(m.form.Code()),
		ack(forms.CopyCode, "Copy Code (c)"),
		"",
		s.Label.Render("Or send them the join link:"),
		s.Panel.Render(m.form.Link()),
		ack(forms.CopyLink, "Copy Link (l)"),
		"",
		s.TitleMuted.Render("The code can be used once and expires in 7 days."),
	}
	if m.copyErr != "" {
		rows = append(rows, s.Error.Render(m.copyErr))
	}
	rows = append(rows, "",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.Button.Render("Invite Another (a)"), "  ", s.ButtonPrimary.Render(" Done (↵) ")),
	)
	return styles.Modal(s, lipgloss.JoinVertical(lipgloss.Left, rows...), m.width, m.height)
}
