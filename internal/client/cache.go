package client

import (
	"context"
	"sync"

	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/pkg/logger"
)

// Cache holds the last successfully fetched contact list. Refresh swaps
// the whole list at once; a failed fetch never disturbs what readers see.
type Cache struct {
	api *Client

	mu       sync.RWMutex
	contacts []domain.Contact
	loaded   bool
}

// NewCache creates an empty cache backed by the given API client.
func NewCache(api *Client) *Cache {
	return &Cache{api: api}
}

// Refresh fetches the full contact list and replaces the cached copy.
// On failure the previous contents stay in place and the error is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	contacts, err := c.api.List(ctx)
	if err != nil {
		logger.Warn("contact cache refresh failed", "error", err)
		return err
	}

	c.mu.Lock()
	c.contacts = contacts
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Contacts returns a copy of the cached list in server order (newest first).
func (c *Cache) Contacts() []domain.Contact {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Contact, len(c.contacts))
	copy(out, c.contacts)
	return out
}

// Loaded reports whether at least one refresh has succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
