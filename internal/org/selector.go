// Package org holds the active organization shared by every view.
package org

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tgienger/phub/internal/models"
)

// Persister remembers the selection across runs
type Persister interface {
	LoadOrganizationID() (string, error)
	SaveOrganizationID(id string) error
}

// Selector holds at most one active organization id
type Selector struct {
	mu      sync.RWMutex
	id      string
	persist Persister
}

// NewSelector restores the persisted selection, if any. p may be nil.
func NewSelector(p Persister) *Selector {
	s := &Selector{persist: p}
	if p != nil {
		id, err := p.LoadOrganizationID()
		if err != nil {
			log.Warn().Err(err).Msg("could not restore organization")
		}
		s.id = id
	}
	return s
}

// Current returns the active organization id, "" when none
func (s *Selector) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Select makes id the active organization. Membership is not checked here;
// the server rejects out-of-scope requests.
func (s *Selector) Select(id string) {
	s.mu.Lock()
	changed := s.id != id
	s.id = id
	s.mu.Unlock()

	if changed && s.persist != nil {
		if err := s.persist.SaveOrganizationID(id); err != nil {
			log.Warn().Err(err).Msg("could not persist organization")
		}
	}
}

// Clear drops the selection
func (s *Selector) Clear() { s.Select("") }

// EnsureSelected picks the first organization when nothing is selected or
// the selection is no longer listed. It returns the resulting id.
func (s *Selector) EnsureSelected(orgs []models.Organization) string {
	current := s.Current()
	for _, o := range orgs {
		if o.ID == current {
			return current
		}
	}
	if len(orgs) == 0 {
		if current != "" {
			s.Clear()
		}
		return ""
	}
	s.Select(orgs[0].ID)
	return orgs[0].ID
}

// Next selects the organization after the current one, wrapping around
func (s *Selector) Next(orgs []models.Organization) string {
	if len(orgs) == 0 {
		return s.Current()
	}
	current := s.Current()
	next := orgs[0].ID
	for i, o := range orgs {
		if o.ID == current {
			next = orgs[(i+1)%len(orgs)].ID
			break
		}
	}
	s.Select(next)
	return next
}
