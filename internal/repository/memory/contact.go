// Package memory provides an in-memory contact repository for local
// development and handler tests. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/service/contact"
)

// ContactRepo implements contact.Repository with mutex-guarded maps.
type ContactRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Contact
	byEmail map[string]string // email -> contact id, the uniqueness guard
}

// NewContactRepo creates an empty in-memory contact repository.
func NewContactRepo() *ContactRepo {
	return &ContactRepo{
		byID:    make(map[string]*domain.Contact),
		byEmail: make(map[string]string),
	}
}

func (r *ContactRepo) Insert(_ context.Context, c *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[c.Email]; taken {
		return contact.ErrDuplicateEmail
	}
	cp := *c
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *ContactRepo) FindAll(_ context.Context) ([]domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Contact, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	// Newest first; id breaks ties so the order is stable.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *ContactRepo) FindByID(_ context.Context, id string) (*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, contact.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ContactRepo) FindByEmail(_ context.Context, email string) (*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, contact.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *ContactRepo) Update(_ context.Context, c *domain.Contact, prevEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		return contact.ErrNotFound
	}
	if c.Email != prevEmail {
		if holder, taken := r.byEmail[c.Email]; taken && holder != c.ID {
			return contact.ErrDuplicateEmail
		}
		delete(r.byEmail, prevEmail)
		r.byEmail[c.Email] = c.ID
	}
	cp := *c
	r.byID[cp.ID] = &cp
	return nil
}

func (r *ContactRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return contact.ErrNotFound
	}
	delete(r.byEmail, c.Email)
	delete(r.byID, id)
	return nil
}
