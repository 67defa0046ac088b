package views

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
)

// Authenticator signs the user in
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
}

type loginResultMsg struct {
	view int64
	err  error
}

// LoginView asks for credentials
type LoginView struct {
	scope
	auth   Authenticator
	form   *forms.LoginForm
	editor *editor
	notice string
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
}

// NewLoginView creates the login screen. notice is shown above the form,
// e.g. after the session expired.
func NewLoginView(auth Authenticator, notice string) *LoginView {
	s := styles.NewStyles()
	return &LoginView{
		scope:  newScope(),
		auth:   auth,
		form:   &forms.LoginForm{},
		notice: notice,
		styles: s,
		keys:   keys.DefaultKeyMap(),
		editor: newEditor("Sign in to ProjectHub", "Sign In", s,
			textField("Username", "Username", "", 150),
			secretField("Password"),
		),
	}
}

// Init initializes the view
func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) submit() tea.Cmd {
	v.form.Username = v.editor.value(0)
	v.form.Password = v.editor.value(1)
	if !v.form.Begin() {
		return nil
	}
	id, ctx := v.id, v.ctx
	username, password := v.form.Username, v.form.Password
	return func() tea.Msg {
		return loginResultMsg{view: id, err: v.auth.Login(ctx, username, password)}
	}
}

// Update handles messages
func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case loginResultMsg:
		if !v.owns(msg.view) {
			return v, nil
		}
		v.form.Finish(msg.err)
		if msg.err != nil {
			return v, nil
		}
		v.editor.setValue(1, "")
		return v, emit(LoggedIn{})

	case tea.KeyMsg:
		if key.Matches(msg, v.keys.Back) {
			return v, tea.Quit
		}
		action, cmd := v.editor.update(msg, v.form.Submitting())
		if action == editorSubmit {
			return v, v.submit()
		}
		return v, cmd
	}
	return v, v.editor.updateInput(msg)
}

// View renders the view
func (v *LoginView) View() string {
	body := v.editor.view(v.width, v.height, v.form.Message(), v.form.Submitting())
	if v.notice == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Center, v.styles.Pending.Render(v.notice), body)
}
