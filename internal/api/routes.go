package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rcourtman/cpe-console/internal/config"
	"github.com/rcourtman/cpe-console/internal/paramtree"
	"github.com/rcourtman/cpe-console/internal/provisioning"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

// ACS is the read and proxy surface of the GenieACS client used by the handlers.
type ACS interface {
	ListDevices(ctx context.Context, rawQuery string) (*genieacs.Response, error)
	ListDeviceTrees(ctx context.Context, rawQuery string) ([]*paramtree.Node, error)
	GetDevice(ctx context.Context, deviceID string) (*genieacs.Response, error)
	QueryDevice(ctx context.Context, deviceID string) (*paramtree.Node, error)
	DeleteDevice(ctx context.Context, deviceID string) (*genieacs.Response, error)
	Ping(ctx context.Context) error
	BaseURL() string
}

// Deps holds shared dependencies injected into HTTP handlers.
type Deps struct {
	Config    *config.Config
	ACS       ACS
	Sequencer *provisioning.Sequencer
	Version   string
	StartTime time.Time
	// Now defaults to time.Now.
	Now func() time.Time
}

// RegisterRoutes wires all HTTP handlers onto the given ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps *Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.StartTime.IsZero() {
		deps.StartTime = deps.Now()
	}
	h := &handlers{deps: deps}

	mutationLimiter := NewRateLimiter(deps.Config.MutationRateLimit, time.Minute)
	mutating := func(fn http.HandlerFunc) http.Handler {
		return mutationLimiter.Middleware(fn)
	}

	// Probes
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /status", h.handleStatus)

	// Device inventory
	mux.HandleFunc("GET /devices", h.handleListDevices)
	mux.HandleFunc("GET /devices/summary", h.handleListSummaries)
	mux.HandleFunc("GET /devices/{id}", h.handleGetDevice)
	mux.HandleFunc("GET /devices/{id}/summary", h.handleDeviceSummary)
	mux.HandleFunc("GET /devices/{id}/wan", h.handleListWAN)
	mux.Handle("DELETE /devices/{id}", mutating(h.handleDeleteDevice))

	// Provisioning
	mux.Handle("POST /devices/{id}/refresh", mutating(h.handleRefresh))
	mux.Handle("POST /devices/{id}/reboot", mutating(h.handleReboot))
	mux.Handle("POST /devices/reboot", mutating(h.handleBulkReboot))
	mux.Handle("POST /devices/{id}/wan", mutating(h.handleAddWAN))
	mux.Handle("PUT /devices/{id}/wan", mutating(h.handleForwardWAN))
	mux.Handle("PATCH /devices/{id}/wan", mutating(h.handleEditWAN))
	mux.Handle("DELETE /devices/{id}/wan", mutating(h.handleDeleteWAN))
	mux.Handle("PATCH /devices/{id}/wifi", mutating(h.handleEditWiFi))
}

type handlers struct {
	deps *Deps
}

// queryContext bounds a read against the ACS by the query timeout.
func (h *handlers) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := h.deps.Config.QueryTimeout
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
