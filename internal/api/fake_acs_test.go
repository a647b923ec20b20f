package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcourtman/cpe-console/internal/config"
	"github.com/rcourtman/cpe-console/internal/provisioning"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

type recordedTask struct {
	DeviceID string
	RawQuery string
	Body     map[string]any
}

// fakeACS is a minimal GenieACS northbound API backed by in-memory documents.
type fakeACS struct {
	mu         sync.Mutex
	devices    map[string]map[string]any
	tasks      []recordedTask
	listings   []string
	deletes    []string
	taskStatus int
	taskBody   string
}

func newFakeACS() *fakeACS {
	return &fakeACS{devices: map[string]map[string]any{}, taskStatus: http.StatusOK}
}

func (f *fakeACS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/devices":
		f.listings = append(f.listings, r.URL.RawQuery)
		docs := []map[string]any{}
		if q := r.URL.Query().Get("query"); q != "" {
			var filter map[string]string
			_ = json.Unmarshal([]byte(q), &filter)
			if doc, ok := f.devices[filter["_id"]]; ok {
				docs = append(docs, doc)
			}
		} else {
			for id, doc := range f.devices {
				if r.URL.Query().Get("projection") == "_id" {
					docs = append(docs, map[string]any{"_id": id})
					continue
				}
				docs = append(docs, doc)
			}
		}
		_ = json.NewEncoder(w).Encode(docs)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/tasks"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/devices/"), "/tasks")
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		f.tasks = append(f.tasks, recordedTask{DeviceID: id, RawQuery: r.URL.RawQuery, Body: body})
		w.WriteHeader(f.taskStatus)
		if f.taskBody != "" {
			_, _ = io.WriteString(w, f.taskBody)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"_id": fmt.Sprintf("task-%d", len(f.tasks)), "name": body["name"]})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/devices/"):
		f.deletes = append(f.deletes, strings.TrimPrefix(r.URL.Path, "/devices/"))
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeACS) taskNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.tasks))
	for _, t := range f.tasks {
		name, _ := t.Body["name"].(string)
		names = append(names, name)
	}
	return names
}

func (f *fakeACS) recorded() []recordedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedTask(nil), f.tasks...)
}

func testConfig() *config.Config {
	return &config.Config{
		QueryTimeout:          2 * time.Second,
		MutationTimeout:       2 * time.Second,
		MutationRateLimit:     1000,
		BulkRebootConcurrency: 2,
		ConnectionRequest:     true,
	}
}

type testEnv struct {
	acs     *fakeACS
	handler http.Handler
	now     time.Time
}

// newTestEnv wires the real client and sequencer against a fake ACS.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	acs := newFakeACS()
	server := httptest.NewServer(acs)
	t.Cleanup(server.Close)
	return newTestEnvWithURL(t, acs, server.URL, mutate...)
}

func newTestEnvWithURL(t *testing.T, acs *fakeACS, baseURL string, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	cfg.GenieACSBaseURL = baseURL
	for _, m := range mutate {
		m(cfg)
	}

	client, err := genieacs.NewClient(genieacs.ClientConfig{
		BaseURL:   cfg.GenieACSBaseURL,
		Timeout:   cfg.ClientTimeout(),
		VerifySSL: true,
	})
	require.NoError(t, err)

	now := time.Date(2026, 10, 14, 8, 5, 0, 0, time.UTC)
	seq := provisioning.New(client, provisioning.Config{
		Timeout:           cfg.MutationTimeout,
		ConnectionRequest: cfg.ConnectionRequest,
		BulkConcurrency:   cfg.BulkRebootConcurrency,
	})
	deps := &Deps{
		Config:    cfg,
		ACS:       client,
		Sequencer: seq,
		Version:   "test",
		StartTime: now.Add(-time.Hour),
		Now:       func() time.Time { return now },
	}
	return &testEnv{acs: acs, handler: NewHandler(deps), now: now}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

// pppDevice builds a device document with the given WANPPPConnection instances.
func pppDevice(id string, instances map[string]map[string]any) map[string]any {
	ppp := map[string]any{"_object": true}
	for idx, attrs := range instances {
		inst := map[string]any{}
		for k, v := range attrs {
			inst[k] = map[string]any{"_value": v}
		}
		ppp[idx] = inst
	}
	return map[string]any{
		"_id":         id,
		"_lastInform": "2026-10-14T08:00:00.000Z",
		"_deviceId":   map[string]any{"_SerialNumber": "SN-" + id, "_ProductClass": "HG8245H", "_Manufacturer": "Huawei"},
		"InternetGatewayDevice": map[string]any{
			"WANDevice": map[string]any{"1": map[string]any{
				"WANConnectionDevice": map[string]any{"1": map[string]any{
					"WANPPPConnection": ppp,
				}},
			}},
		},
	}
}
