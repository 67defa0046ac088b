package views

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/phub/internal/forms"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/store"
	"github.com/tgienger/phub/internal/ui/keys"
	"github.com/tgienger/phub/internal/ui/styles"
)

type orgSavedMsg struct {
	view int64
	org  *models.Organization
	err  error
}

// OrgModal creates an organization or joins one with an invite code
type OrgModal struct {
	scope
	store  *store.Store
	form   *forms.OrganizationForm
	create *editor
	join   *editor
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
}

// NewOrgModal opens on the create tab
func NewOrgModal(st *store.Store) *OrgModal {
	s := styles.NewStyles()
	return &OrgModal{
		scope: newScope(),
		store: st,
		form:  forms.NewOrganizationForm(),
		create: newEditor("Create Organization", "Create", s,
			textField("Name", "Organization name", "", 100),
			textField("Description", "Description (optional)", "", 500),
		),
		join: newEditor("Join Organization", "Join", s,
			textField("Invite code", "Invite code", "", 64),
		),
		styles: s,
		keys:   keys.DefaultKeyMap(),
	}
}

func (m *OrgModal) active() *editor {
	if m.form.Tab == forms.TabJoin {
		return m.join
	}
	return m.create
}

// Init initializes the view
func (m *OrgModal) Init() tea.Cmd { return textinput.Blink }

func (m *OrgModal) submit() tea.Cmd {
	f := m.form
	f.Name = m.create.value(0)
	f.Description = m.create.value(1)
	f.Code = m.join.value(0)
	if !f.Begin() {
		return nil
	}

	id, ctx := m.id, m.ctx
	if f.Tab == forms.TabJoin {
		code := f.CodeValue()
		return func() tea.Msg {
			o, err := m.store.JoinOrganization(ctx, code)
			return orgSavedMsg{view: id, org: o, err: err}
		}
	}
	name, desc := f.NameValue(), f.DescriptionValue()
	return func() tea.Msg {
		o, err := m.store.CreateOrganization(ctx, name, desc)
		return orgSavedMsg{view: id, org: o, err: err}
	}
}

// Update handles messages
func (m *OrgModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case orgSavedMsg:
		if !m.owns(msg.view) || dropped(msg.err) {
			return m, nil
		}
		joining := m.form.Tab == forms.TabJoin
		m.form.Finish(msg.org, msg.err)
		if msg.err != nil {
			return m, expired(msg.err)
		}
		notice := "Created " + msg.org.Name
		if joining {
			notice = "Successfully joined " + msg.org.Name + "!"
		}
		return m, emit(OrganizationAdded{Org: *msg.org, Message: notice})

	case tea.KeyMsg:
		if msg.String() == "ctrl+t" {
			m.form.Toggle()
			return m, textinput.Blink
		}
		action, cmd := m.active().update(msg, m.form.Submitting())
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
	return m, m.active().updateInput(msg)
}

// View renders the view
func (m *OrgModal) View() string {
	s := m.styles
	tabs := make([]string, 0, 2)
	for _, t := range []forms.OrgTab{forms.TabCreate, forms.TabJoin} {
		style := s.Tab
		if t == m.form.Tab {
			style = s.TabActive
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, tabs...) + s.TitleMuted.Render("   ctrl+t: switch")
	return lipgloss.JoinVertical(lipgloss.Center,
		header,
		m.active().view(m.width, m.height-2, m.form.Message(), m.form.Submitting()),
	)
}
