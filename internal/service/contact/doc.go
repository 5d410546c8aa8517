// Package contact implements contact record management.
//
// The service layer owns field validation and the duplicate-email business
// rule. It depends on the Repository interface defined in this package and
// should never import from internal/api.
//
// Repository implementations live in repository/dynamo/, repository/postgres/
// and repository/memory/. The repositories — not this package — are the
// authoritative enforcement point for email uniqueness: the service's
// FindByEmail pre-check on create is only a fast path for a friendly
// rejection, and a concurrent create that slips past it is still stopped by
// the store's uniqueness guard.
package contact
