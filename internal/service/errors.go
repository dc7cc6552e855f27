package service

import (
	"errors"
	"fmt"
)

// ErrInvalidIntent is returned when a purchase names both an event and
// a package, or neither. The check runs before any I/O.
var ErrInvalidIntent = errors.New("specify exactly one of eventId or packageId")

// ErrTicketNotOwned is returned when a return names a code that is not
// in the client's list. The check runs before any remote call, so a
// foreign code never touches the inventory service.
var ErrTicketNotOwned = errors.New("ticket not owned by this client")

// ErrHasTickets is returned when deleting a client that still owns
// tickets.
var ErrHasTickets = errors.New("client still owns tickets")

// PartialFailureError reports that the remote side effect succeeded but
// the local write did not, leaving either an orphaned remote ticket
// (purchase) or a dangling local reference (return). It is not safe to
// blindly retry the operation: a retried purchase would mint a second
// code while the first stays orphaned. The condition is published to
// the reconcile queue and must be repaired out of band.
type PartialFailureError struct {
	Condition string // queue.ConditionOrphanRemote or queue.ConditionDanglingLocal
	Code      string // the ticket code left inconsistent
	Err       error  // the local write failure that caused it
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure (%s) for ticket %s: %v", e.Condition, e.Code, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
