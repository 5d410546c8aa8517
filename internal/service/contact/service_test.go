package contact_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/service/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory contact repository for unit testing.
type memRepo struct {
	mu       sync.Mutex
	contacts map[string]*domain.Contact // keyed by id
}

func newMemRepo() *memRepo {
	return &memRepo{contacts: make(map[string]*domain.Contact)}
}

func (m *memRepo) Insert(_ context.Context, c *domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contacts {
		if existing.Email == c.Email {
			return contact.ErrDuplicateEmail
		}
	}
	cp := *c
	m.contacts[cp.ID] = &cp
	return nil
}

func (m *memRepo) FindAll(_ context.Context) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, contact.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, contact.ErrNotFound
}

func (m *memRepo) Update(_ context.Context, c *domain.Contact, prevEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[c.ID]; !ok {
		return contact.ErrNotFound
	}
	if c.Email != prevEmail {
		for _, existing := range m.contacts {
			if existing.ID != c.ID && existing.Email == c.Email {
				return contact.ErrDuplicateEmail
			}
		}
	}
	cp := *c
	m.contacts[cp.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[id]; !ok {
		return contact.ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func validInput() contact.CreateInput {
	return contact.CreateInput{
		Name:  "Ann Lee",
		Email: "ann@x.com",
		Phone: "5551234567",
	}
}

func TestCreateValid(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	before := time.Now().UTC()
	c, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Ann Lee", c.Name)
	assert.Equal(t, "ann@x.com", c.Email)
	assert.Equal(t, "5551234567", c.Phone)
	assert.False(t, c.CreatedAt.Before(before))
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestCreateTrimsName(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	input := validInput()
	input.Name = "  Ann Lee  "
	c, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", c.Name)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*contact.CreateInput)
		field  string
	}{
		{"missing name", func(i *contact.CreateInput) { i.Name = "" }, "name"},
		{"whitespace name", func(i *contact.CreateInput) { i.Name = "   " }, "name"},
		{"missing email", func(i *contact.CreateInput) { i.Email = "" }, "email"},
		{"malformed email", func(i *contact.CreateInput) { i.Email = "not-an-email" }, "email"},
		{"email without tld", func(i *contact.CreateInput) { i.Email = "ann@host" }, "email"},
		{"missing phone", func(i *contact.CreateInput) { i.Phone = "" }, "phone"},
		{"short phone", func(i *contact.CreateInput) { i.Phone = "555123" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := contact.NewService(newMemRepo())
			input := validInput()
			tt.mutate(&input)

			_, err := svc.Create(context.Background(), input)
			require.Error(t, err)
			assert.True(t, contact.IsValidation(err))
			var ve *contact.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreatePhoneTenNonDigitsPasses(t *testing.T) {
	// Length is the only phone rule; digit content is not enforced.
	svc := contact.NewService(newMemRepo())
	input := validInput()
	input.Phone = "extension-12"

	_, err := svc.Create(context.Background(), input)
	assert.NoError(t, err)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	input := validInput()
	input.Name = "Other Person"
	input.Phone = "9998887766"
	_, err = svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, contact.ErrDuplicateEmail)
}

func TestUpdateNameOnly(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	name := "Ann B. Lee"
	updated, err := svc.Update(context.Background(), created.ID, contact.UpdateInput{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Ann B. Lee", updated.Name)
	assert.Equal(t, created.Email, updated.Email)
	assert.Equal(t, created.Phone, updated.Phone)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdateRevalidates(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	bad := "nope"
	_, err = svc.Update(context.Background(), created.ID, contact.UpdateInput{Email: &bad})
	assert.True(t, contact.IsValidation(err))

	// Failed update must not have persisted anything.
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Email)
}

func TestUpdateUnknownID(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	name := "Nobody"
	_, err := svc.Update(context.Background(), "missing-id", contact.UpdateInput{Name: &name})
	assert.ErrorIs(t, err, contact.ErrNotFound)
}

func TestUpdateEmailCollisionBackstop(t *testing.T) {
	// The service does not pre-check uniqueness on update; the repository's
	// guard is what rejects the collision.
	svc := contact.NewService(newMemRepo())

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), contact.CreateInput{
		Name: "Bob", Email: "bob@x.com", Phone: "5550001111",
	})
	require.NoError(t, err)

	taken := "ann@x.com"
	_, err = svc.Update(context.Background(), second.ID, contact.UpdateInput{Email: &taken})
	assert.ErrorIs(t, err, contact.ErrDuplicateEmail)
}

func TestDeleteTwice(t *testing.T) {
	svc := contact.NewService(newMemRepo())

	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, contact.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), contact.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := newMemRepo()
	svc := contact.NewService(repo)

	// Insert directly so creation times are distinct and controlled.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		require.NoError(t, repo.Insert(context.Background(), &domain.Contact{
			ID: email, Name: "N", Email: email, Phone: "5551234567",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c@x.com", list[0].Email)
	assert.Equal(t, "a@x.com", list[2].Email)
}
