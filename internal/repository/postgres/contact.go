package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/service/contact"
)

// ContactRepo implements contact.Repository against PostgreSQL.
// The unique index on email is the authoritative duplicate-email backstop.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// EnsureSchema creates the contacts table and its unique email index if they
// don't exist yet. Called once at startup.
func (r *ContactRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS contacts (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			phone      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS contacts_email_unique ON contacts (email);
	`)
	if err != nil {
		return fmt.Errorf("ensure contacts schema: %w", err)
	}
	return nil
}

func (r *ContactRepo) Insert(ctx context.Context, c *domain.Contact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Name, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return contact.ErrDuplicateEmail
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *ContactRepo) FindAll(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM contacts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	out := []domain.Contact{}
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ContactRepo) FindByID(ctx context.Context, id string) (*domain.Contact, error) {
	return r.findOne(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM contacts WHERE id = $1
	`, id)
}

func (r *ContactRepo) FindByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	return r.findOne(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM contacts WHERE email = $1
	`, email)
}

func (r *ContactRepo) findOne(ctx context.Context, query, arg string) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contact.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepo) Update(ctx context.Context, c *domain.Contact, _ string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET name = $2, email = $3, phone = $4, updated_at = $5
		WHERE id = $1
	`, c.ID, c.Name, c.Email, c.Phone, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return contact.ErrDuplicateEmail
		}
		return fmt.Errorf("update contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact rows: %w", err)
	}
	if n == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func (r *ContactRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact rows: %w", err)
	}
	if n == 0 {
		return contact.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
