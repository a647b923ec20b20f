package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/inventory"
	"github.com/rcourtman/cpe-console/internal/utils"
	"github.com/rcourtman/cpe-console/internal/wan"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

// deviceID returns the trimmed {id} path value.
func deviceID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", internalerrors.NewValidationError("device id is required")
	}
	return id, nil
}

// writeACSResponse mirrors an ACS reply: same status, same body.
func writeACSResponse(w http.ResponseWriter, resp *genieacs.Response) {
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotModified:
		w.WriteHeader(resp.StatusCode)
		return
	}
	if err := utils.WriteRawJSON(w, resp.StatusCode, resp.Body); err != nil {
		log.Warn().Err(err).Msg("Failed to write ACS response")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	if err := utils.WriteJSONResponse(w, status, data); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func (h *handlers) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	resp, err := h.deps.ACS.ListDevices(ctx, r.URL.RawQuery)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeACSResponse(w, resp)
}

func (h *handlers) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := deviceID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.queryContext(r)
	defer cancel()

	resp, err := h.deps.ACS.GetDevice(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeACSResponse(w, resp)
}

func (h *handlers) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, err := deviceID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.queryContext(r)
	defer cancel()

	resp, err := h.deps.ACS.DeleteDevice(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("device_id", id).Int("status", resp.StatusCode).Msg("Device delete forwarded")
	writeACSResponse(w, resp)
}

// handleListSummaries renders the device list view. The query string is forwarded so
// callers can filter or page the underlying listing.
func (h *handlers) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	trees, err := h.deps.ACS.ListDeviceTrees(ctx, r.URL.RawQuery)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := h.deps.Now()
	summaries := make([]inventory.Summary, 0, len(trees))
	for _, tree := range trees {
		summaries = append(summaries, inventory.Summarize(tree, now))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *handlers) handleDeviceSummary(w http.ResponseWriter, r *http.Request) {
	id, err := deviceID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.queryContext(r)
	defer cancel()

	tree, err := h.deps.ACS.QueryDevice(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventory.Describe(tree, h.deps.Now()))
}

func (h *handlers) handleListWAN(w http.ResponseWriter, r *http.Request) {
	id, err := deviceID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.queryContext(r)
	defer cancel()

	tree, err := h.deps.ACS.QueryDevice(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	instances := make([]inventory.Instance, 0)
	for _, idx := range wan.ListInstances(tree) {
		if inst, ok := inventory.ReadInstance(tree, idx); ok {
			instances = append(instances, inst)
		}
	}
	writeJSON(w, http.StatusOK, instances)
}
