// Package session tracks who is signed in and owns the session token.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/api"
	"github.com/tgienger/phub/internal/apperr"
	"github.com/tgienger/phub/internal/models"
	"github.com/tgienger/phub/internal/validation"
)

// State is the authentication state of the client
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "invalid"
	}
}

// ErrInvalidTransition is returned when an operation is not allowed in the current state
var ErrInvalidTransition = errors.New("session: invalid state transition")

// TokenStore persists the session token between runs
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

// Authenticator is the slice of the API the session needs
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
}

// Observer is called after every state transition
type Observer func(State, *models.User)

// Store holds the current user and token
type Store struct {
	mu    sync.RWMutex
	state State
	user  *models.User
	token string

	auth      Authenticator
	tokens    TokenStore
	onEnd     []func()
	observers []Observer
}

// Option configures a Store
type Option func(*Store)

// OnSessionEnd registers cleanup run whenever the session ends, such as
// resetting the cache or clearing the selected organization
func OnSessionEnd(fn func()) Option {
	return func(s *Store) { s.onEnd = append(s.onEnd, fn) }
}

// New creates a Store in StateUnknown. Call Resolve before rendering protected views.
func New(auth Authenticator, tokens TokenStore, opts ...Option) *Store {
	s := &Store{auth: auth, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in user, nil unless authenticated
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token implements api.TokenSource
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) transition(to State, user *models.User, token string) {
	s.mu.Lock()
	s.state = to
	s.user = user
	s.token = token
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	log.Debug().Stringer("state", to).Msg("session transition")
	for _, o := range observers {
		o(to, user)
	}
}

// Resolve settles StateUnknown by checking a stored token with the server.
// It never fails: any problem leaves the session anonymous.
func (s *Store) Resolve(ctx context.Context) State {
	if s.State() != StateUnknown {
		return s.State()
	}

	token, err := s.tokens.LoadToken()
	if err != nil {
		log.Warn().Err(err).Msg("could not read stored session")
	}
	if token == "" {
		s.transition(StateAnonymous, nil, "")
		return StateAnonymous
	}

	// The token must be visible to the client for the Me request
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.auth.Me(ctx)
	switch {
	case err == nil && user != nil:
		s.transition(StateAuthenticated, user, token)
		return StateAuthenticated
	case err != nil && !apperr.IsAuth(err):
		// Server unreachable: stay signed out but keep the token for the next start
		log.Warn().Err(err).Msg("could not resolve session")
	default:
		if err := s.tokens.ClearToken(); err != nil {
			log.Warn().Err(err).Msg("could not clear stale session")
		}
	}
	s.transition(StateAnonymous, nil, "")
	return StateAnonymous
}

// Login exchanges credentials for a session and confirms it with Me
func (s *Store) Login(ctx context.Context, username, password string) error {
	if s.State() != StateAnonymous {
		return ErrInvalidTransition
	}
	if err := validation.ValidateCredentials(username, password); err != nil {
		return err
	}

	res, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = res.SessionKey
	s.mu.Unlock()

	user, err := s.auth.Me(ctx)
	if err == nil && user == nil {
		err = apperr.NewAuthError("Login failed")
	}
	if err != nil {
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		return err
	}

	if err := s.tokens.SaveToken(res.SessionKey); err != nil {
		log.Warn().Err(err).Msg("could not persist session")
	}
	s.transition(StateAuthenticated, user, res.SessionKey)
	return nil
}

// Logout ends the session server-side on a best-effort basis, then always
// clears local state
func (s *Store) Logout(ctx context.Context) {
	if s.State() != StateAuthenticated {
		return
	}
	if err := s.auth.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("logout request failed; clearing local session anyway")
	}
	s.end()
}

// Expire drops the session after the server rejected its credential.
// It reports whether err was an authentication failure.
func (s *Store) Expire(err error) bool {
	if !apperr.IsAuth(err) {
		return false
	}
	if s.State() == StateAuthenticated {
		log.Info().Msg("session expired")
		s.end()
	}
	return true
}

func (s *Store) end() {
	s.mu.RLock()
	hooks := append([]func(){}, s.onEnd...)
	s.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
	if err := s.tokens.ClearToken(); err != nil {
		log.Warn().Err(err).Msg("could not clear stored session")
	}
	s.transition(StateAnonymous, nil, "")
}
