package client

import (
	"context"
	"errors"

	"github.com/ignite/contact-manager/internal/domain"
)

// SessionState is the lifecycle state of a form session.
type SessionState int

const (
	// StateClosed means no form is open.
	StateClosed SessionState = iota
	// StateCreating means the form holds a new, unsaved contact.
	StateCreating
	// StateEditing means the form holds a copy of an existing contact.
	StateEditing
)

func (s SessionState) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateEditing:
		return "editing"
	default:
		return "closed"
	}
}

// ErrSessionClosed is returned by Submit when no form is open.
var ErrSessionClosed = errors.New("no form session open")

// Session drives a single create-or-edit form over the API client. Field
// edits are local until Submit; a failed submit keeps the form open with
// the entered values so the caller can correct and retry. All writes go
// through the API client, never a store directly.
type Session struct {
	api   *Client
	cache *Cache

	state  SessionState
	editID string

	Name  string
	Email string
	Phone string
}

// NewSession creates a closed session. cache is optional; when set, a
// successful Submit refreshes it.
func NewSession(api *Client, cache *Cache) *Session {
	return &Session{api: api, cache: cache}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// OpenCreate opens an empty form for a new contact. Any form already
// open is discarded.
func (s *Session) OpenCreate() {
	s.state = StateCreating
	s.editID = ""
	s.Name = ""
	s.Email = ""
	s.Phone = ""
}

// OpenEdit opens a form pre-filled from the given contact. Edits apply
// to the copy; the original is untouched until Submit succeeds.
func (s *Session) OpenEdit(c domain.Contact) {
	s.state = StateEditing
	s.editID = c.ID
	s.Name = c.Name
	s.Email = c.Email
	s.Phone = c.Phone
}

// Submit sends the form to the API: a create when the session was opened
// with OpenCreate, an update when opened with OpenEdit. On success the
// session closes and the cache (if any) is refreshed; on failure the form
// stays open with its values intact and the server's error is returned.
func (s *Session) Submit(ctx context.Context) (domain.Contact, error) {
	if s.state == StateClosed {
		return domain.Contact{}, ErrSessionClosed
	}

	in := ContactInput{Name: &s.Name, Email: &s.Email, Phone: &s.Phone}

	var (
		saved domain.Contact
		err   error
	)
	if s.state == StateCreating {
		saved, err = s.api.Create(ctx, in)
	} else {
		saved, err = s.api.Update(ctx, s.editID, in)
	}
	if err != nil {
		return domain.Contact{}, err
	}

	s.Cancel()
	if s.cache != nil {
		// Refresh failure leaves the cache one list behind; the write
		// itself already succeeded.
		_ = s.cache.Refresh(ctx)
	}
	return saved, nil
}

// Cancel discards the form and closes the session.
func (s *Session) Cancel() {
	s.state = StateClosed
	s.editID = ""
	s.Name = ""
	s.Email = ""
	s.Phone = ""
}
