// Package inventory talks to the remote ticket inventory (events)
// service. It owns ticket-code generation and translates transport
// outcomes into a small error taxonomy so the service layer never has
// to look at HTTP status codes.
package inventory

import "errors"

// ErrReferenceNotFound is returned when the target event or package
// does not exist in the inventory service.
var ErrReferenceNotFound = errors.New("event or package not found")

// ErrCodeConflict is returned when the ticket code is already in use.
// Codes are minted locally from UUIDs so this is vanishingly rare, but
// it has to be handled.
var ErrCodeConflict = errors.New("ticket code already in use")

// ErrUnprocessable is returned when the inventory service rejects the
// operation on business grounds (e.g. no tickets left).
var ErrUnprocessable = errors.New("inventory rejected the operation")

// ErrUnavailable is returned for transport failures, timeouts and 5xx
// responses. The whole operation is safe to retry from the top because
// nothing local was mutated before the remote call.
var ErrUnavailable = errors.New("inventory service unavailable")
