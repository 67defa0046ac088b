package views

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/store"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

var lastViewID atomic.Int64

// scope ties async results to the view instance that asked for them.
// Closing it cancels the view's in-flight requests.
type scope struct {
	id     int64
	ctx    context.Context
	cancel context.CancelFunc
}

func newScope() scope {
	ctx, cancel := context.WithCancel(context.Background())
	return scope{id: lastViewID.Add(1), ctx: ctx, cancel: cancel}
}

// Close cancels the view's requests; their results are dropped
func (s scope) Close() { s.cancel() }

func (s scope) owns(view int64) bool {
	return view == s.id && s.ctx.Err() == nil
}

// Navigation and session messages handled by the app shell

// OpenProject asks the app to show a project
type OpenProject struct{ ID string }

// BackToProjects signals to go back to project list
type BackToProjects struct{}

// OpenOrganizations opens the create/join organization modal
type OpenOrganizations struct{}

// OpenInvite opens the invite modal for the active organization
type OpenInvite struct{}

// CloseModal closes whichever modal is open
type CloseModal struct{}

// SwitchOrganization selects the next organization
type SwitchOrganization struct{}

// LogoutRequested ends the session
type LogoutRequested struct{}

// LoggedIn is sent once the login view has a session
type LoggedIn struct{}

// SessionExpired is sent when the server rejected the session credential
type SessionExpired struct{ Err error }

// OrganizationAdded is sent after creating or joining an organization
type OrganizationAdded struct {
	Org     models.Organization
	Message string
}

// emit wraps a message as a command
func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// dropped reports results that no view should display: canceled requests
// and responses that arrived after the session was reset
func dropped(err error) bool {
	return errors.Is(err, store.ErrDiscarded) || errors.Is(err, context.Canceled)
}

// expired turns an authentication failure into SessionExpired
func expired(err error) tea.Cmd {
	if !apperr.IsAuth(err) {
		return nil
	}
	log.Debug().Err(err).Msg("request rejected, session expired")
	return emit(SessionExpired{Err: err})
}

func userMessage(err error) string { return apperr.UserMessage(err) }
