package client

import (
	"strings"

	"github.com/ignite/contact-manager/internal/domain"
)

// Filter returns the contacts whose name or email contains term,
// case-insensitively. An empty or whitespace-only term matches everything.
// Input order is preserved and the input slice is never mutated.
func Filter(contacts []domain.Contact, term string) []domain.Contact {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		out := make([]domain.Contact, len(contacts))
		copy(out, contacts)
		return out
	}

	out := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Email), term) {
			out = append(out, c)
		}
	}
	return out
}
