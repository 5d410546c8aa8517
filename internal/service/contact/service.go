package contact

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/pkg/logger"
)

// emailPattern matches a simple local@domain.tld address. Kept deliberately
// loose: the goal is catching obvious typos, not full RFC 5322 compliance.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

const minPhoneLength = 10

// Service implements contact business logic. All public methods are safe for
// concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a contact service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the input, rejects duplicate emails, and persists a new
// contact with a generated id and timestamps.
//
// The FindByEmail pre-check and the Insert are two separate store operations;
// the store's own uniqueness guard is the backstop for the race between them.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Contact, error) {
	c := &domain.Contact{
		ID:    uuid.New().String(),
		Name:  strings.TrimSpace(input.Name),
		Email: input.Email,
		Phone: input.Phone,
	}
	if err := validate(c); err != nil {
		return nil, err
	}

	// Fast path: friendly rejection before attempting the write.
	if _, err := s.repo.FindByEmail(ctx, c.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}

	logger.Info("contact created", "id", c.ID, "email", c.Email)
	return c, nil
}

// List returns all contacts, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		// An empty list serializes as [], never null.
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// Get returns a single contact by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies the provided fields to an existing contact, re-validates the
// merged document, and persists it. Only name, email and phone are mutable.
//
// Email uniqueness is not pre-checked here; a colliding email is caught by
// the storage layer's guard and surfaces as ErrDuplicateEmail.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Contact, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevEmail := c.Email

	if input.Name != nil {
		c.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		c.Email = *input.Email
	}
	if input.Phone != nil {
		c.Phone = *input.Phone
	}
	if err := validate(c); err != nil {
		return nil, err
	}

	c.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, c, prevEmail); err != nil {
		return nil, err
	}

	logger.Info("contact updated", "id", c.ID)
	return c, nil
}

// Delete removes a contact permanently. There is no tombstone: a second
// delete of the same id returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("contact deleted", "id", id)
	return nil
}

// validate checks the format rules for a complete contact document.
// Name must already be trimmed by the caller.
func validate(c *domain.Contact) error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if c.Email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if !emailPattern.MatchString(c.Email) {
		return &ValidationError{Field: "email", Message: "Please add a valid email"}
	}
	if c.Phone == "" {
		return &ValidationError{Field: "phone", Message: "Phone number is required"}
	}
	if len(c.Phone) < minPhoneLength {
		return &ValidationError{Field: "phone", Message: "Phone number must be at least 10 digits"}
	}
	return nil
}
