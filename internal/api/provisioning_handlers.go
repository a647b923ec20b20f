package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/provisioning"
)

const maxRequestBodyBytes = 1 << 20

// readBody reads a bounded request body. An absent body reads as empty.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, internalerrors.Validationf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, internalerrors.Validationf("failed to read request body: %v", err)
	}
	return body, nil
}

// writeOperation mirrors the authoritative write and exposes what the operation targeted.
func writeOperation(w http.ResponseWriter, res *provisioning.Result) {
	header := w.Header()
	header.Set("X-Operation-ID", res.OperationID)
	if res.Instance > 0 {
		header.Set("X-WAN-Instance", strconv.Itoa(res.Instance))
	}
	if res.VLANKey.Key != "" {
		header.Set("X-VLAN-Key", res.VLANKey.Key)
		header.Set("X-VLAN-Key-Confidence", string(res.VLANKey.Confidence))
	}
	if res.Response == nil {
		writeJSON(w, http.StatusAccepted, map[string]string{"operationId": res.OperationID})
		return
	}
	writeACSResponse(w, res.Response)
}

// mutation is the common shape of the id-plus-body provisioning handlers.
func (h *handlers) mutation(w http.ResponseWriter, r *http.Request, run func(id string, body []byte) (*provisioning.Result, error)) {
	id, err := deviceID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := run(id, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOperation(w, res)
}

// handleAddWAN creates a WAN profile, or forwards the body as a raw task when it
// already names one.
func (h *handlers) handleAddWAN(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, func(id string, body []byte) (*provisioning.Result, error) {
		if names, err := namesTask(body); err != nil {
			return nil, err
		} else if names {
			return h.deps.Sequencer.Forward(r.Context(), id, body)
		}
		req, err := provisioning.DecodeAddWAN(body)
		if err != nil {
			return nil, err
		}
		return h.deps.Sequencer.AddWAN(r.Context(), id, req)
	})
}

func (h *handlers) handleForwardWAN(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, func(id string, body []byte) (*provisioning.Result, error) {
		if len(strings.TrimSpace(string(body))) == 0 {
			body = []byte("{}")
		}
		return h.deps.Sequencer.Forward(r.Context(), id, body)
	})
}

func (h *handlers) handleEditWAN(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, func(id string, body []byte) (*provisioning.Result, error) {
		req, err := provisioning.DecodeEditWAN(body)
		if err != nil {
			return nil, err
		}
		return h.deps.Sequencer.EditWAN(r.Context(), id, req)
	})
}

func (h *handlers) handleDeleteWAN(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, func(id string, body []byte) (*provisioning.Result, error) {
		req, err := provisioning.DecodeDeleteWAN(body)
		if err != nil {
			return nil, err
		}
		return h.deps.Sequencer.DeleteWAN(r.Context(), id, req)
	})
}

func (h *handlers) handleEditWiFi(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, func(id string, body []byte) (*provisioning.Result, error) {
		req, err := provisioning.DecodeEditWiFi(body)
		if err != nil {
			return nil, err
		}
		return h.deps.Sequencer.EditWiFi(r.Context(), id, req)
	})
}

func (h *handlers) handleReboot(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, func(id string, _ []byte) (*provisioning.Result, error) {
		return h.deps.Sequencer.Reboot(r.Context(), id)
	})
}

type refreshRequest struct {
	Type string `json:"type"`
}

type refreshResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  string `json:"taskId,omitempty"`
}

func (h *handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id, err := deviceID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req refreshRequest
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, r, internalerrors.NewValidationError("Invalid JSON body"))
			return
		}
	}
	kind := req.Type

	res, err := h.deps.Sequencer.Refresh(r.Context(), id, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Operation-ID", res.OperationID)
	if !res.Response.OK() {
		writeACSResponse(w, res.Response)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Success: true,
		Message: strings.ToUpper(kind) + " refresh task sent successfully",
		TaskID:  taskID(res.Response.Body),
	})
}

type bulkRebootResponse struct {
	Results   []provisioning.DeviceOutcome `json:"results"`
	Total     int                          `json:"total"`
	Succeeded int                          `json:"succeeded"`
	Failed    int                          `json:"failed"`
}

func (h *handlers) handleBulkReboot(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req provisioning.BulkRebootRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, internalerrors.NewValidationError("Invalid JSON body"))
		return
	}

	outcomes, err := h.deps.Sequencer.BulkReboot(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := bulkRebootResponse{Results: outcomes, Total: len(outcomes)}
	for _, out := range outcomes {
		if out.OK() {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// namesTask reports whether a POST body is already a task document.
func namesTask(body []byte) (bool, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return false, nil
	}
	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		return false, internalerrors.NewValidationError("Invalid JSON body")
	}
	switch name := probe["name"].(type) {
	case nil:
		return false, nil
	case string:
		return name != "", nil
	case bool:
		return name, nil
	default:
		return true, nil
	}
}

// taskID pulls the queued task id from an ACS task reply.
func taskID(body json.RawMessage) string {
	if len(body) == 0 {
		return ""
	}
	var reply map[string]any
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	for _, key := range []string{"taskId", "_id"} {
		if v, ok := reply[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
