package views

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/styles"
)

type joinedMsg struct {
	view int64
	org  *models.Organization
	err  error
}

// JoinView redeems an invite code. A code passed on the command line is
// submitted automatically once the user is signed in.
type JoinView struct {
	scope
	store  *store.Store
	form   *forms.JoinForm
	editor *editor
	width  int
	height int
}

// NewJoinView prepares the view; pending may be empty
func NewJoinView(st *store.Store, pending string) *JoinView {
	f := forms.NewJoinForm(pending)
	return &JoinView{
		scope: newScope(),
		store: st,
		form:  f,
		editor: newEditor("Join Organization", "Join", styles.NewStyles(),
			textField("Invite code", "Invite code", f.Code, 64),
		),
	}
}

// Pending reports whether an automatic submission is still waiting
func (v *JoinView) Pending() bool { return v.form.Pending() }

// Authenticated starts the pending submission. Only the first call after
// sign-in yields a command.
func (v *JoinView) Authenticated() tea.Cmd {
	if !v.form.AutoSubmit(true) {
		return nil
	}
	return v.send()
}

// Init initializes the view
func (v *JoinView) Init() tea.Cmd { return textinput.Blink }

func (v *JoinView) send() tea.Cmd {
	id, ctx, code := v.id, v.ctx, v.form.CodeValue()
	return func() tea.Msg {
		o, err := v.store.JoinOrganization(ctx, code)
		return joinedMsg{view: id, org: o, err: err}
	}
}

// Update handles messages
func (v *JoinView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case joinedMsg:
		if !v.owns(msg.view) || dropped(msg.err) {
			return v, nil
		}
		v.form.Finish(msg.org, msg.err)
		if msg.err != nil {
			return v, expired(msg.err)
		}
		return v, emit(OrganizationAdded{Org: *msg.org, Message: v.form.SuccessMessage()})

	case tea.KeyMsg:
		action, cmd := v.editor.update(msg, v.form.Submitting())
		switch action {
		case editorCancel:
			if v.form.Submitting() {
				return v, nil
			}
			return v, emit(BackToProjects{})
		case editorSubmit:
			v.form.Code = v.editor.value(0)
			if !v.form.Begin() {
				return v, nil
			}
			return v, v.send()
		}
		return v, cmd
	}
	return v, v.editor.updateInput(msg)
}

// View renders the view
func (v *JoinView) View() string {
	return v.editor.view(v.width, v.height, v.form.Message(), v.form.Submitting())
}
