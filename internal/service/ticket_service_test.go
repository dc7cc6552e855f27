package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/biletera/client-service/internal/inventory"
	"github.com/biletera/client-service/internal/model"
	"github.com/biletera/client-service/internal/queue"
	"github.com/biletera/client-service/internal/repository"
)

// fakeStore is an in-memory ClientStore with real optimistic-version
// semantics, so concurrency behavior can be exercised without MySQL.
type fakeStore struct {
	mu      sync.Mutex
	clients map[string]model.Client
	saveErr error // injected non-conflict save failure
}

func newFakeStore(clients ...model.Client) *fakeStore {
	s := &fakeStore{clients: make(map[string]model.Client)}
	for _, c := range clients {
		if c.Version == 0 {
			c.Version = 1
		}
		s.clients[c.ID] = c
	}
	return s
}

func (s *fakeStore) Create(ctx context.Context, c model.Client) (model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = fmt.Sprintf("client-%d", len(s.clients)+1)
	c.Version = 1
	if c.TicketCodes == nil {
		c.TicketCodes = []string{}
	}
	s.clients[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return model.Client{}, repository.ErrClientNotFound
	}
	c.TicketCodes = append([]string(nil), c.TicketCodes...)
	return c, nil
}

func (s *fakeStore) GetByEmail(ctx context.Context, email string) (model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.Email == email {
			return c, nil
		}
	}
	return model.Client{}, repository.ErrClientNotFound
}

func (s *fakeStore) List(ctx context.Context, page, size int) ([]model.Client, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (s *fakeStore) Save(ctx context.Context, c model.Client, expectedVersion uint64) (model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.clients[c.ID]
	if !ok {
		return model.Client{}, repository.ErrClientNotFound
	}
	if cur.Version != expectedVersion {
		return model.Client{}, repository.ErrVersionConflict
	}
	if s.saveErr != nil {
		return model.Client{}, s.saveErr
	}
	c.Version = cur.Version + 1
	c.TicketCodes = append([]string(nil), c.TicketCodes...)
	s.clients[c.ID] = c
	return c, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return repository.ErrClientNotFound
	}
	delete(s.clients, id)
	return nil
}

func (s *fakeStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ExistsByOwner(ctx context.Context, idmUserID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.IDMUserID == idmUserID {
			return true, nil
		}
	}
	return false, nil
}

// fakeGateway is an in-memory InventoryGateway that records call counts
// so tests can assert that validation failures never reach the remote.
type fakeGateway struct {
	mu          sync.Mutex
	mintSeq     int
	records     map[string]inventory.TicketRecord
	events      map[int64]inventory.EventSummary
	packages    map[int64]inventory.PackageSummary
	pkgEvents   map[int64][]inventory.EventSummary
	createErr   error
	deleteErr   error
	createCalls int
	deleteCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		records:   make(map[string]inventory.TicketRecord),
		events:    make(map[int64]inventory.EventSummary),
		packages:  make(map[int64]inventory.PackageSummary),
		pkgEvents: make(map[int64][]inventory.EventSummary),
	}
}

func (g *fakeGateway) MintCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mintSeq++
	return fmt.Sprintf("BILET-%08x", g.mintSeq)
}

func (g *fakeGateway) CreateTicket(ctx context.Context, code string, eventID, packageID *int64, authToken string) (inventory.TicketRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return inventory.TicketRecord{}, g.createErr
	}
	if _, ok := g.records[code]; ok {
		return inventory.TicketRecord{}, inventory.ErrCodeConflict
	}
	rec := inventory.TicketRecord{Code: code, EventID: eventID, PackageID: packageID}
	g.records[code] = rec
	return rec, nil
}

func (g *fakeGateway) DeleteTicket(ctx context.Context, code, authToken string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	if g.deleteErr != nil {
		return g.deleteErr
	}
	delete(g.records, code) // absent is fine, delete is idempotent
	return nil
}

func (g *fakeGateway) GetTicket(ctx context.Context, code string) *inventory.TicketRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.records[code]; ok {
		return &rec
	}
	return nil
}

func (g *fakeGateway) GetEvent(ctx context.Context, id int64) *inventory.EventSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ev, ok := g.events[id]; ok {
		return &ev
	}
	return nil
}

func (g *fakeGateway) GetPackage(ctx context.Context, id int64) *inventory.PackageSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.packages[id]; ok {
		return &p
	}
	return nil
}

func (g *fakeGateway) GetPackageEvents(ctx context.Context, id int64) []inventory.EventSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pkgEvents[id]
}

func (g *fakeGateway) calls() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.deleteCalls
}

// newTestService wires a service around the fakes with reconcile
// publishing captured in memory.
func newTestService(store *fakeStore, gw *fakeGateway) (*ClientService, *[]queue.TicketReconcileEvent) {
	events := &[]queue.TicketReconcileEvent{}
	var mu sync.Mutex
	svc := &ClientService{
		Store:     store,
		Inventory: gw,
		Reconcile: func(ctx context.Context, ev queue.TicketReconcileEvent) error {
			mu.Lock()
			defer mu.Unlock()
			*events = append(*events, ev)
			return nil
		},
	}
	return svc, events
}

func int64p(v int64) *int64 { return &v }

func testClient(id string, codes ...string) model.Client {
	if codes == nil {
		codes = []string{}
	}
	return model.Client{ID: id, IDMUserID: 1, Email: id + "@example.com", TicketCodes: codes, Version: 1}
}

func TestPurchaseAppendsCode(t *testing.T) {
	store := newFakeStore(testClient("c1", "BILET-existing"))
	gw := newFakeGateway()
	svc, _ := newTestService(store, gw)

	got, err := svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(5)}, "Bearer tok")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if len(got.TicketCodes) != 2 {
		t.Fatalf("ticket codes = %v, want 2 entries", got.TicketCodes)
	}
	code := got.TicketCodes[1]
	if got.TicketCodes[0] != "BILET-existing" {
		t.Errorf("existing code displaced: %v", got.TicketCodes)
	}
	seen := 0
	for _, tc := range got.TicketCodes {
		if tc == code {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("new code appears %d times, want exactly once", seen)
	}
	rec := gw.GetTicket(context.Background(), code)
	if rec == nil || rec.EventID == nil || *rec.EventID != 5 {
		t.Errorf("remote record = %+v, want eventId 5", rec)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
}

func TestPurchaseInvalidIntent(t *testing.T) {
	store := newFakeStore(testClient("c1"))
	gw := newFakeGateway()
	svc, _ := newTestService(store, gw)

	for name, intent := range map[string]PurchaseIntent{
		"both":    {EventID: int64p(1), PackageID: int64p(2)},
		"neither": {},
	} {
		if _, err := svc.Purchase(context.Background(), "c1", intent, ""); !errors.Is(err, ErrInvalidIntent) {
			t.Errorf("%s: err = %v, want ErrInvalidIntent", name, err)
		}
	}
	if creates, deletes := gw.calls(); creates != 0 || deletes != 0 {
		t.Errorf("gateway touched on invalid intent: creates=%d deletes=%d", creates, deletes)
	}
}

func TestPurchaseClientNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), newFakeGateway())
	_, err := svc.Purchase(context.Background(), "missing", PurchaseIntent{EventID: int64p(1)}, "")
	if !errors.Is(err, repository.ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}
}

func TestPurchaseRemoteFailureLeavesClientUntouched(t *testing.T) {
	store := newFakeStore(testClient("c1"))
	gw := newFakeGateway()
	gw.createErr = inventory.ErrReferenceNotFound
	svc, _ := newTestService(store, gw)

	_, err := svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(999)}, "")
	if !errors.Is(err, inventory.ErrReferenceNotFound) {
		t.Fatalf("err = %v, want ErrReferenceNotFound", err)
	}
	c, _ := store.GetByID(context.Background(), "c1")
	if len(c.TicketCodes) != 0 || c.Version != 1 {
		t.Errorf("client mutated after remote failure: %+v", c)
	}
}

func TestPurchasePartialFailure(t *testing.T) {
	store := newFakeStore(testClient("c1"))
	store.saveErr = errors.New("storage write failed")
	gw := newFakeGateway()
	svc, events := newTestService(store, gw)

	_, err := svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(5)}, "")
	var pf *PartialFailureError
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if pf.Condition != queue.ConditionOrphanRemote {
		t.Errorf("condition = %q, want %q", pf.Condition, queue.ConditionOrphanRemote)
	}
	// The orphaned code must be reported and must exist remotely.
	if gw.GetTicket(context.Background(), pf.Code) == nil {
		t.Errorf("orphaned code %q not present remotely", pf.Code)
	}
	c, _ := store.GetByID(context.Background(), "c1")
	if len(c.TicketCodes) != 0 {
		t.Errorf("client record changed despite failed persist: %v", c.TicketCodes)
	}
	if len(*events) != 1 || (*events)[0].Condition != queue.ConditionOrphanRemote || (*events)[0].TicketCode != pf.Code {
		t.Errorf("reconcile events = %+v, want one orphan_remote for %s", *events, pf.Code)
	}
}

func TestConcurrentPurchases(t *testing.T) {
	store := newFakeStore(testClient("c1"))
	gw := newFakeGateway()
	svc, _ := newTestService(store, gw)

	// Gate both loads so each purchase starts from version 1.
	var loads sync.WaitGroup
	loads.Add(2)
	gated := &gatedStore{fakeStore: store, gate: &loads}
	svc.Store = gated

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(5)}, "")
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, repository.ErrVersionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("got %d successes and %d conflicts, want 1 and 1", successes, conflicts)
	}

	// The losing caller retries the whole operation and wins this time.
	svc.Store = store
	got, err := svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(5)}, "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(got.TicketCodes) != 2 {
		t.Fatalf("after retry ticket codes = %v, want 2 owned", got.TicketCodes)
	}
	for _, code := range got.TicketCodes {
		if gw.GetTicket(context.Background(), code) == nil {
			t.Errorf("owned code %q has no remote record", code)
		}
	}
}

// gatedStore delays GetByID until both concurrent purchasers have
// loaded, forcing them onto the same starting version.
type gatedStore struct {
	*fakeStore
	gate *sync.WaitGroup
}

func (s *gatedStore) GetByID(ctx context.Context, id string) (model.Client, error) {
	c, err := s.fakeStore.GetByID(ctx, id)
	s.gate.Done()
	s.gate.Wait()
	return c, err
}

func TestReturnRemovesCode(t *testing.T) {
	store := newFakeStore(testClient("c1"))
	gw := newFakeGateway()
	svc, _ := newTestService(store, gw)

	bought, err := svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(5)}, "")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	code := bought.TicketCodes[0]

	got, err := svc.Return(context.Background(), "c1", code, "")
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if len(got.TicketCodes) != 0 {
		t.Errorf("ticket codes = %v, want empty", got.TicketCodes)
	}
	if gw.GetTicket(context.Background(), code) != nil {
		t.Errorf("remote record for %q still present after return", code)
	}
}

func TestReturnNotOwned(t *testing.T) {
	store := newFakeStore(testClient("c1", "BILET-aaaaaaaa"))
	gw := newFakeGateway()
	svc, _ := newTestService(store, gw)

	_, err := svc.Return(context.Background(), "c1", "BILET-ffffffff", "")
	if !errors.Is(err, ErrTicketNotOwned) {
		t.Fatalf("err = %v, want ErrTicketNotOwned", err)
	}
	if creates, deletes := gw.calls(); creates != 0 || deletes != 0 {
		t.Errorf("gateway touched for unowned code: creates=%d deletes=%d", creates, deletes)
	}
}

func TestReturnRemoteUnavailableKeepsOwnership(t *testing.T) {
	store := newFakeStore(testClient("c1", "BILET-aaaaaaaa"))
	gw := newFakeGateway()
	gw.deleteErr = inventory.ErrUnavailable
	svc, _ := newTestService(store, gw)

	_, err := svc.Return(context.Background(), "c1", "BILET-aaaaaaaa", "")
	if !errors.Is(err, inventory.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	c, _ := store.GetByID(context.Background(), "c1")
	if !c.OwnsTicket("BILET-aaaaaaaa") {
		t.Errorf("ticket no longer owned after failed remote delete: %v", c.TicketCodes)
	}
}

func TestReturnPartialFailure(t *testing.T) {
	store := newFakeStore(testClient("c1", "BILET-aaaaaaaa"))
	store.saveErr = errors.New("storage write failed")
	gw := newFakeGateway()
	gw.records["BILET-aaaaaaaa"] = inventory.TicketRecord{Code: "BILET-aaaaaaaa", EventID: int64p(5)}
	svc, events := newTestService(store, gw)

	_, err := svc.Return(context.Background(), "c1", "BILET-aaaaaaaa", "")
	var pf *PartialFailureError
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if pf.Condition != queue.ConditionDanglingLocal || pf.Code != "BILET-aaaaaaaa" {
		t.Errorf("partial failure = %+v, want dangling_local for BILET-aaaaaaaa", pf)
	}
	// Remote record already deleted, local list still claims the code.
	if gw.GetTicket(context.Background(), "BILET-aaaaaaaa") != nil {
		t.Errorf("remote record still present")
	}
	c, _ := store.GetByID(context.Background(), "c1")
	if !c.OwnsTicket("BILET-aaaaaaaa") {
		t.Errorf("local list lost the code despite failed persist")
	}
	if len(*events) != 1 || (*events)[0].Condition != queue.ConditionDanglingLocal {
		t.Errorf("reconcile events = %+v, want one dangling_local", *events)
	}
}

func TestListDetailedOrderAndDegradation(t *testing.T) {
	store := newFakeStore(testClient("c1", "BILET-00000001", "BILET-00000002", "BILET-00000003"))
	gw := newFakeGateway()
	gw.records["BILET-00000001"] = inventory.TicketRecord{Code: "BILET-00000001", EventID: int64p(5)}
	gw.records["BILET-00000002"] = inventory.TicketRecord{Code: "BILET-00000002", PackageID: int64p(3)}
	// BILET-00000003 has no remote record: dangling reference.
	gw.events[5] = inventory.EventSummary{ID: 5, Name: "Concert"}
	gw.packages[3] = inventory.PackageSummary{ID: 3, Name: "Festival Pass"}
	gw.pkgEvents[3] = []inventory.EventSummary{{ID: 5, Name: "Concert"}, {ID: 6, Name: "Afterparty"}}
	svc, _ := newTestService(store, gw)

	details, err := svc.ListDetailed(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ListDetailed: %v", err)
	}
	if len(details) != 3 {
		t.Fatalf("got %d rows, want 3", len(details))
	}
	if details[0].Type != "event" || details[0].Event == nil || details[0].Event.Name != "Concert" {
		t.Errorf("row 0 = %+v, want event Concert", details[0])
	}
	if details[1].Type != "package" || details[1].Package == nil || details[1].Package.Name != "Festival Pass" {
		t.Errorf("row 1 = %+v, want package Festival Pass", details[1])
	}
	if want := []string{"Concert", "Afterparty"}; len(details[1].IncludedEvents) != 2 ||
		details[1].IncludedEvents[0] != want[0] || details[1].IncludedEvents[1] != want[1] {
		t.Errorf("included events = %v, want %v", details[1].IncludedEvents, want)
	}
	if details[2].Type != "missing" || details[2].Code != "BILET-00000003" {
		t.Errorf("row 2 = %+v, want missing row for BILET-00000003", details[2])
	}
}

func TestPurchaseReturnScenario(t *testing.T) {
	store := newFakeStore(testClient("c1"))
	gw := newFakeGateway()
	svc, _ := newTestService(store, gw)

	got, err := svc.Purchase(context.Background(), "c1", PurchaseIntent{EventID: int64p(5)}, "")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if len(got.TicketCodes) != 1 {
		t.Fatalf("ticket codes = %v, want one", got.TicketCodes)
	}
	code := got.TicketCodes[0]
	if ok, _ := regexp.MatchString(`^BILET-[0-9a-f]{8}$`, code); !ok {
		t.Errorf("code %q does not match BILET-<8 hex>", code)
	}

	got, err = svc.Return(context.Background(), "c1", code, "")
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if len(got.TicketCodes) != 0 {
		t.Errorf("ticket codes = %v, want none", got.TicketCodes)
	}
}
