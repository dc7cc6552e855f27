package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// codePrefix is prepended to every minted ticket code.
const codePrefix = "BILET-"

// Gateway is the HTTP client for the inventory service. The embedded
// http.Client carries the per-request timeout from configuration, so
// every call is bounded and a timeout classifies as ErrUnavailable.
// The Redis client is optional; when nil the metadata lookups skip
// caching entirely.
type Gateway struct {
	base     string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
}

// New builds a Gateway for the inventory service at baseURL. cache may
// be nil to disable metadata caching.
func New(baseURL string, timeout time.Duration, cache *redis.Client) *Gateway {
	return &Gateway{
		base:     baseURL,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: 30 * time.Second,
	}
}

// MintCode generates a new candidate ticket code. Pure and local; the
// code is only registered remotely by the subsequent create call.
// Uniqueness is probabilistic (UUID-derived), a collision surfaces
// later as ErrCodeConflict.
func (g *Gateway) MintCode() string {
	return codePrefix + uuid.NewString()[:8]
}

// CreateTicket registers code with the inventory service against
// exactly one of eventID/packageID. The caller guarantees the
// exclusive-or. The raw Authorization header value of the original
// request is forwarded unmodified.
func (g *Gateway) CreateTicket(ctx context.Context, code string, eventID, packageID *int64, authToken string) (TicketRecord, error) {
	body, err := json.Marshal(createRequest{EventID: eventID, PackageID: packageID})
	if err != nil {
		return TicketRecord{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		g.base+"/api/event-manager/tickets/"+code, bytes.NewReader(body))
	if err != nil {
		return TicketRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return TicketRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var rec TicketRecord
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return TicketRecord{}, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
		}
		return rec, nil
	case resp.StatusCode == http.StatusNotFound:
		return TicketRecord{}, ErrReferenceNotFound
	case resp.StatusCode == http.StatusConflict:
		return TicketRecord{}, ErrCodeConflict
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return TicketRecord{}, ErrUnprocessable
	default:
		return TicketRecord{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

// DeleteTicket removes the remote record for code. A 404 is success:
// deleting something already gone must be safe so that retries and
// out-of-order returns never fail spuriously.
func (g *Gateway) DeleteTicket(ctx context.Context, code, authToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		g.base+"/api/event-manager/tickets/"+code, nil)
	if err != nil {
		return err
	}
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
}

// GetTicket looks up the remote record for code. Any failure, including
// the inventory being unreachable, folds into nil; callers that need to
// distinguish those cases must not use this method.
func (g *Gateway) GetTicket(ctx context.Context, code string) *TicketRecord {
	var rec TicketRecord
	if !g.getJSON(ctx, "/api/event-manager/tickets/"+code, "", &rec) {
		return nil
	}
	return &rec
}

// GetEvent fetches one event's summary, best effort. Results are cached
// in Redis for a short TTL when a cache client is configured.
func (g *Gateway) GetEvent(ctx context.Context, id int64) *EventSummary {
	var ev EventSummary
	key := fmt.Sprintf("inventory:event:%d", id)
	if !g.getJSON(ctx, fmt.Sprintf("/api/event-manager/events/%d", id), key, &ev) {
		return nil
	}
	return &ev
}

// GetPackage fetches one package's summary, best effort.
func (g *Gateway) GetPackage(ctx context.Context, id int64) *PackageSummary {
	var p PackageSummary
	key := fmt.Sprintf("inventory:packet:%d", id)
	if !g.getJSON(ctx, fmt.Sprintf("/api/event-manager/event-packets/%d", id), key, &p) {
		return nil
	}
	return &p
}

// GetPackageEvents fetches the events included in a package, best
// effort. Any failure yields an empty slice.
func (g *Gateway) GetPackageEvents(ctx context.Context, id int64) []EventSummary {
	var resp packageEventsResponse
	key := fmt.Sprintf("inventory:packet-events:%d", id)
	if !g.getJSON(ctx, fmt.Sprintf("/api/event-manager/event-packets/%d/events", id), key, &resp) {
		return nil
	}
	return resp.Embedded.Events
}

// getJSON performs a fail-soft GET: a false return means "absent" and
// carries no further detail. When cacheKey is non-empty the raw body is
// cached in Redis; cache errors are ignored so a dead Redis never
// degrades the read path below what the inventory itself can serve.
func (g *Gateway) getJSON(ctx context.Context, path, cacheKey string, out any) bool {
	if cacheKey != "" && g.cache != nil {
		if raw, err := g.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			if json.Unmarshal(raw, out) == nil {
				return true
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+path, nil)
	if err != nil {
		return false
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return false
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	if cacheKey != "" && g.cache != nil {
		g.cache.Set(ctx, cacheKey, raw, g.cacheTTL)
	}
	return true
}
