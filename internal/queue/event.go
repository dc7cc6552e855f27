// Package queue defines message payloads exchanged over the message broker.
package queue

// Reconcile conditions. An orphan is a remote ticket record no client
// claims (local append failed after remote create succeeded); a dangling
// reference is a client-owned code whose remote record is gone (local
// removal failed after remote delete succeeded). Neither is repaired
// automatically; both are handed to an external reconciliation process.
const (
    ConditionOrphanRemote  = "orphan_remote"
    ConditionDanglingLocal = "dangling_local"
)

// TicketReconcileEvent is published whenever a purchase or return ends
// in a partial failure. It carries enough information for an operator
// or sweep job to repair the inconsistency without querying this
// service.
type TicketReconcileEvent struct {
    ClientID   string `json:"client_id"`
    TicketCode string `json:"ticket_code"`
    Condition  string `json:"condition"`
    EventID    *int64 `json:"event_id,omitempty"`
    PackageID  *int64 `json:"package_id,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
