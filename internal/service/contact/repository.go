package contact

import (
	"context"

	"github.com/ignite/contact-manager/internal/domain"
)

// Repository defines the data access contract for contacts.
// Implementations must be safe for concurrent use and must enforce email
// uniqueness at the storage layer (unique index, conditional write).
type Repository interface {
	// Insert persists a new contact. The contact arrives fully validated
	// with ID and timestamps assigned. Returns ErrDuplicateEmail if another
	// contact already holds the email.
	Insert(ctx context.Context, c *domain.Contact) error

	// FindAll returns every contact ordered by creation time, newest first.
	FindAll(ctx context.Context) ([]domain.Contact, error)

	// FindByID returns a single contact. Returns ErrNotFound if it doesn't exist.
	FindByID(ctx context.Context, id string) (*domain.Contact, error)

	// FindByEmail returns the contact holding the given email, exact match.
	// Returns ErrNotFound if no contact has it.
	FindByEmail(ctx context.Context, email string) (*domain.Contact, error)

	// Update persists the merged contact document. prevEmail is the email the
	// record held before the update so implementations can re-point their
	// uniqueness guard. Returns ErrNotFound if the id is unknown and
	// ErrDuplicateEmail if the new email is already taken.
	Update(ctx context.Context, c *domain.Contact, prevEmail string) error

	// Delete removes a contact permanently. Returns ErrNotFound if the id is
	// unknown (including a second delete of the same id).
	Delete(ctx context.Context, id string) error
}

// UpdateInput holds the mutable contact fields for a partial update.
// Nil fields are left unchanged. This is the full allow-list: nothing else
// on a contact can be modified after creation.
type UpdateInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// CreateInput holds the fields for creating a new contact.
type CreateInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
