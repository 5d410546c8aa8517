// Package client is the Go client library for the contacts API. It
// bundles the HTTP client with the in-memory view layer: a full-list
// cache, substring filtering, and a form session for create/edit flows.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/contact-manager/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests; *http.Client
// satisfies it. Failures surface to the caller once, unretried.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx response from the contacts API. Message carries
// the server's {"message": ...} body verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client is a contacts API client
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new contacts API client for the given base URL
// (e.g. "http://localhost:5000").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithDoer creates a client with a caller-supplied HTTP doer.
func NewClientWithDoer(baseURL string, doer HTTPDoer) *Client {
	return &Client{baseURL: baseURL, httpClient: doer}
}

// doRequest makes an HTTP request to the contacts API and returns the
// response body. Non-2xx responses are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(body),
		}
	}

	return body, nil
}

// extractMessage pulls the message field out of an error envelope. If the
// body isn't the expected shape, the raw body is returned so nothing is lost.
func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Message == "" {
		return string(body)
	}
	return envelope.Message
}

// ContactInput is the request body for create and update calls. On update,
// nil fields are omitted so the server keeps the current values.
type ContactInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// List fetches all contacts, newest first.
func (c *Client) List(ctx context.Context) ([]domain.Contact, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/contacts", nil)
	if err != nil {
		return nil, err
	}

	var contacts []domain.Contact
	if err := json.Unmarshal(body, &contacts); err != nil {
		return nil, fmt.Errorf("decoding contacts: %w", err)
	}
	return contacts, nil
}

// Get fetches a single contact by ID.
func (c *Client) Get(ctx context.Context, id string) (domain.Contact, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/contacts/"+id, nil)
	if err != nil {
		return domain.Contact{}, err
	}

	var contact domain.Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return domain.Contact{}, fmt.Errorf("decoding contact: %w", err)
	}
	return contact, nil
}

// Create adds a new contact and returns the stored record.
func (c *Client) Create(ctx context.Context, in ContactInput) (domain.Contact, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/contacts", in)
	if err != nil {
		return domain.Contact{}, err
	}

	var contact domain.Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return domain.Contact{}, fmt.Errorf("decoding contact: %w", err)
	}
	return contact, nil
}

// Update applies the non-nil fields of in to the contact with the given ID.
func (c *Client) Update(ctx context.Context, id string, in ContactInput) (domain.Contact, error) {
	body, err := c.doRequest(ctx, http.MethodPut, "/api/contacts/"+id, in)
	if err != nil {
		return domain.Contact{}, err
	}

	var contact domain.Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return domain.Contact{}, fmt.Errorf("decoding contact: %w", err)
	}
	return contact, nil
}

// Delete removes the contact with the given ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/contacts/"+id, nil)
	return err
}
