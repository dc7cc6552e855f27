// Package service implements the ticket ownership orchestration: it
// keeps a client's local ticket-code list consistent with the remote
// inventory's record of issued tickets, without a distributed
// transaction. Remote side effects always run before the local write so
// that a failed local write leaves a detectable inconsistency on the
// remote side instead of a local claim to a ticket that never existed.
package service

import (
	"context"

	"github.com/biletera/client-service/internal/inventory"
	"github.com/biletera/client-service/internal/model"
	"github.com/biletera/client-service/internal/queue"
)

// ClientStore is the persistence contract the service needs. It is
// satisfied by repository.ClientRepo; tests substitute an in-memory
// fake. Save must be guarded by the optimistic version check.
type ClientStore interface {
	Create(ctx context.Context, c model.Client) (model.Client, error)
	GetByID(ctx context.Context, id string) (model.Client, error)
	GetByEmail(ctx context.Context, email string) (model.Client, error)
	List(ctx context.Context, page, size int) ([]model.Client, int, error)
	Save(ctx context.Context, c model.Client, expectedVersion uint64) (model.Client, error)
	Delete(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByOwner(ctx context.Context, idmUserID int) (bool, error)
}

// InventoryGateway is the remote-inventory contract, satisfied by
// inventory.Gateway. The read methods are fail-soft: nil or empty means
// absent, never an error.
type InventoryGateway interface {
	MintCode() string
	CreateTicket(ctx context.Context, code string, eventID, packageID *int64, authToken string) (inventory.TicketRecord, error)
	DeleteTicket(ctx context.Context, code, authToken string) error
	GetTicket(ctx context.Context, code string) *inventory.TicketRecord
	GetEvent(ctx context.Context, id int64) *inventory.EventSummary
	GetPackage(ctx context.Context, id int64) *inventory.PackageSummary
	GetPackageEvents(ctx context.Context, id int64) []inventory.EventSummary
}

// ClientService composes the store and the gateway. Reconcile is called
// for every inconsistency the service detects but cannot repair; wire
// it to queue.PublishTicketReconcile in production. A nil Reconcile
// disables publishing.
type ClientService struct {
	Store     ClientStore
	Inventory InventoryGateway
	Reconcile func(ctx context.Context, ev queue.TicketReconcileEvent) error
}

// NewClientService constructs a ClientService. Store and gateway must
// be non-nil.
func NewClientService(store ClientStore, inv InventoryGateway) *ClientService {
	if store == nil || inv == nil {
		panic("nil dependency passed to NewClientService")
	}
	return &ClientService{
		Store:     store,
		Inventory: inv,
		Reconcile: queue.PublishTicketReconcile,
	}
}
