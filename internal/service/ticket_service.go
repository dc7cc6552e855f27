package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/biletera/client-service/internal/inventory"
	"github.com/biletera/client-service/internal/model"
	"github.com/biletera/client-service/internal/queue"
	"github.com/biletera/client-service/internal/repository"
)

// PurchaseIntent names the thing a ticket is being bought for. Exactly
// one of the two references must be set.
type PurchaseIntent struct {
	EventID   *int64 `json:"eventId,omitempty"`
	PackageID *int64 `json:"packageId,omitempty"`
}

func (p PurchaseIntent) valid() bool {
	return (p.EventID != nil) != (p.PackageID != nil)
}

// TicketDetail is one row of the denormalized ticket listing. Type is
// "event" or "package" for resolvable tickets, "unknown" when the
// remote record references neither, and "missing" when the record
// cannot be found at all — missing rows are reported, not dropped,
// because they are how dangling references become visible.
type TicketDetail struct {
	Code           string                    `json:"code"`
	Type           string                    `json:"type"`
	Event          *inventory.EventSummary   `json:"event,omitempty"`
	Package        *inventory.PackageSummary `json:"package,omitempty"`
	IncludedEvents []string                  `json:"includedEvents,omitempty"`
}

// Purchase buys one ticket for the client. The remote create runs
// before the local append: a failed local write then leaves an orphaned
// remote ticket, which a reconciliation sweep can find, instead of a
// local claim to a code that never became real, which nothing could
// distinguish from corruption.
func (s *ClientService) Purchase(ctx context.Context, clientID string, intent PurchaseIntent, authToken string) (model.Client, error) {
	if !intent.valid() {
		return model.Client{}, ErrInvalidIntent
	}
	c, err := s.Store.GetByID(ctx, clientID)
	if err != nil {
		return model.Client{}, err
	}

	code := s.Inventory.MintCode()
	if _, err := s.Inventory.CreateTicket(ctx, code, intent.EventID, intent.PackageID, authToken); err != nil {
		// Nothing local was touched; the whole operation failed cleanly.
		return model.Client{}, err
	}

	c.TicketCodes = append(c.TicketCodes, code)
	saved, err := s.Store.Save(ctx, c, c.Version)
	if err != nil {
		// The remote ticket exists but no client claims it.
		s.publishReconcile(ctx, queue.TicketReconcileEvent{
			ClientID:   clientID,
			TicketCode: code,
			Condition:  queue.ConditionOrphanRemote,
			EventID:    intent.EventID,
			PackageID:  intent.PackageID,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			// A concurrent writer won the version check. The caller retries
			// the whole operation; this attempt's code stays orphaned and is
			// handed to reconciliation above.
			return model.Client{}, err
		}
		return model.Client{}, &PartialFailureError{
			Condition: queue.ConditionOrphanRemote,
			Code:      code,
			Err:       err,
		}
	}
	return saved, nil
}

// Return gives one ticket back. Ownership is checked before any remote
// call, and the remote delete runs before the local removal. The delete
// is idempotent on absent, so a version-conflict retry of the whole
// operation converges: the second delete is a no-op and the removal is
// redone against the fresh record.
func (s *ClientService) Return(ctx context.Context, clientID, code, authToken string) (model.Client, error) {
	c, err := s.Store.GetByID(ctx, clientID)
	if err != nil {
		return model.Client{}, err
	}
	if !c.OwnsTicket(code) {
		return model.Client{}, ErrTicketNotOwned
	}

	if err := s.Inventory.DeleteTicket(ctx, code, authToken); err != nil {
		// Ticket stays owned; the remote delete can be retried later.
		return model.Client{}, err
	}

	kept := make([]string, 0, len(c.TicketCodes)-1)
	for _, t := range c.TicketCodes {
		if t != code {
			kept = append(kept, t)
		}
	}
	c.TicketCodes = kept

	saved, err := s.Store.Save(ctx, c, c.Version)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Retrying the whole return heals this: the code is still listed
			// on the fresh record and the remote delete is idempotent.
			return model.Client{}, err
		}
		// The remote record is gone but the client still lists the code.
		s.publishReconcile(ctx, queue.TicketReconcileEvent{
			ClientID:   clientID,
			TicketCode: code,
			Condition:  queue.ConditionDanglingLocal,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
		return model.Client{}, &PartialFailureError{
			Condition: queue.ConditionDanglingLocal,
			Code:      code,
			Err:       err,
		}
	}
	return saved, nil
}

// ListDetailed resolves every owned code against the inventory and
// returns one detail row per code, in ownership order. The lookups are
// independent and read-only, so they fan out concurrently; a code whose
// record cannot be resolved degrades to a "missing" row instead of
// aborting or hiding the entry.
func (s *ClientService) ListDetailed(ctx context.Context, clientID string) ([]TicketDetail, error) {
	c, err := s.Store.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	details := make([]TicketDetail, len(c.TicketCodes))
	var wg sync.WaitGroup
	for i, code := range c.TicketCodes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			details[i] = s.resolveTicket(ctx, code)
		}(i, code)
	}
	wg.Wait()
	return details, nil
}

// resolveTicket builds the detail row for one code.
func (s *ClientService) resolveTicket(ctx context.Context, code string) TicketDetail {
	rec := s.Inventory.GetTicket(ctx, code)
	if rec == nil {
		return TicketDetail{Code: code, Type: "missing"}
	}
	switch {
	case rec.EventID != nil:
		return TicketDetail{
			Code:  code,
			Type:  "event",
			Event: s.Inventory.GetEvent(ctx, *rec.EventID),
		}
	case rec.PackageID != nil:
		d := TicketDetail{
			Code:    code,
			Type:    "package",
			Package: s.Inventory.GetPackage(ctx, *rec.PackageID),
		}
		for _, ev := range s.Inventory.GetPackageEvents(ctx, *rec.PackageID) {
			d.IncludedEvents = append(d.IncludedEvents, ev.Name)
		}
		return d
	default:
		return TicketDetail{Code: code, Type: "unknown"}
	}
}

func (s *ClientService) publishReconcile(ctx context.Context, ev queue.TicketReconcileEvent) {
	if s.Reconcile == nil {
		return
	}
	if err := s.Reconcile(ctx, ev); err != nil {
		// The partial failure is still reported to the caller; losing the
		// message only loses the operator notification.
		log.Printf("reconcile publish failed for %s (%s): %v", ev.TicketCode, ev.Condition, err)
	}
}
