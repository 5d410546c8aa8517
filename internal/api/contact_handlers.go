// Contact CRUD HTTP handlers.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/contact-manager/internal/pkg/httputil"
	"github.com/ignite/contact-manager/internal/service/contact"
)

// ContactHandlers holds the HTTP handlers for the contact endpoints.
type ContactHandlers struct {
	svc     *contact.Service
	started time.Time
}

// NewContactHandlers creates the handler set around the contact service.
func NewContactHandlers(svc *contact.Service) *ContactHandlers {
	return &ContactHandlers{svc: svc, started: time.Now()}
}

// CreateContact handles POST /api/contacts
func (h *ContactHandlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	var input contact.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	c, err := h.svc.Create(r.Context(), input)
	if err != nil {
		writeContactError(w, err)
		return
	}
	httputil.Created(w, c)
}

// ListContacts handles GET /api/contacts
func (h *ContactHandlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, contacts)
}

// GetContact handles GET /api/contacts/{id}
func (h *ContactHandlers) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeContactError(w, err)
		return
	}
	httputil.OK(w, c)
}

// UpdateContact handles PUT /api/contacts/{id}
func (h *ContactHandlers) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var input contact.UpdateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeContactError(w, err)
		return
	}
	httputil.OK(w, c)
}

// DeleteContact handles DELETE /api/contacts/{id}
func (h *ContactHandlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeContactError(w, err)
		return
	}
	httputil.Message(w, "Contact deleted")
}

// HealthCheck handles GET /health
func (h *ContactHandlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// writeContactError maps service-layer failures onto the API error contract.
// Internal details are logged, never sent to the client.
func writeContactError(w http.ResponseWriter, err error) {
	var ve *contact.ValidationError
	switch {
	case errors.Is(err, contact.ErrDuplicateEmail):
		httputil.BadRequest(w, "Email already exists")
	case errors.As(err, &ve):
		httputil.BadRequest(w, ve.Message)
	case errors.Is(err, contact.ErrNotFound):
		httputil.NotFound(w, "Contact not found")
	default:
		httputil.InternalError(w, err)
	}
}
