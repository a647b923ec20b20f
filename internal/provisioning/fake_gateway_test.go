package provisioning

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rcourtman/cpe-console/internal/paramtree"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

type submittedTask struct {
	DeviceID          string
	Task              genieacs.Task
	ConnectionRequest bool
}

// fakeGateway records calls and answers from configurable hooks.
type fakeGateway struct {
	mu        sync.Mutex
	tasks     []submittedTask
	forwarded []json.RawMessage
	queries   int
	ctxErrs   []error

	tree      *paramtree.Node
	queryErr  error
	submitFn  func(task genieacs.Task) (*genieacs.Response, error)
	deviceIDs []string
	listErr   error
}

func (f *fakeGateway) SubmitTask(ctx context.Context, deviceID string, task genieacs.Task, opts ...genieacs.TaskOption) (*genieacs.Response, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, submittedTask{DeviceID: deviceID, Task: task, ConnectionRequest: len(opts) > 0})
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	fn := f.submitFn
	f.mu.Unlock()

	if fn != nil {
		return fn(task)
	}
	return &genieacs.Response{StatusCode: http.StatusOK, Body: json.RawMessage(`{"_id":"task"}`)}, nil
}

func (f *fakeGateway) ForwardTask(ctx context.Context, deviceID string, raw json.RawMessage, opts ...genieacs.TaskOption) (*genieacs.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded = append(f.forwarded, raw)
	return &genieacs.Response{StatusCode: http.StatusAccepted, Body: raw}, nil
}

func (f *fakeGateway) QueryDevice(ctx context.Context, deviceID string) (*paramtree.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.tree, f.queryErr
}

func (f *fakeGateway) ListDeviceIDs(ctx context.Context) ([]string, error) {
	return f.deviceIDs, f.listErr
}

func (f *fakeGateway) taskNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.tasks))
	for _, t := range f.tasks {
		names = append(names, t.Task.Name)
	}
	return names
}

func (f *fakeGateway) taskNamed(name string) (genieacs.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.Task.Name == name {
			return t.Task, true
		}
	}
	return genieacs.Task{}, false
}

func pppTree(instances map[string]map[string]any) *paramtree.Node {
	ppp := map[string]any{"_object": true}
	for idx, attrs := range instances {
		inst := map[string]any{}
		for k, v := range attrs {
			inst[k] = map[string]any{"_value": v}
		}
		ppp[idx] = inst
	}
	return paramtree.FromValue(map[string]any{
		"_id": "dev-1",
		"InternetGatewayDevice": map[string]any{
			"WANDevice": map[string]any{"1": map[string]any{
				"WANConnectionDevice": map[string]any{"1": map[string]any{
					"WANPPPConnection": ppp,
				}},
			}},
		},
	})
}
