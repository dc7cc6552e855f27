// Package repository defines error values that are shared across the
// store layer. These sentinel values allow higher layers such as the
// service and handlers to distinguish between failure scenarios. For
// example, ErrVersionConflict indicates that a concurrent writer saved
// the same client first, while ErrEmailExists signals a uniqueness
// violation at create or update time.
package repository

import "errors"

// ErrClientNotFound is returned when no client row matches the
// requested id or email.
var ErrClientNotFound = errors.New("client not found")

// ErrEmailExists is returned when the email is already taken by
// another client. Handlers should translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrOwnerExists is returned when a client profile already exists for
// the IDM user attempting to create one.
var ErrOwnerExists = errors.New("client already exists for this user")

// ErrVersionConflict is returned when a save carries a stale version,
// meaning a concurrent writer modified the client first. The caller is
// expected to reload and retry the whole operation.
var ErrVersionConflict = errors.New("version conflict")
