// Package provisioning sequences the ACS tasks behind each console action.
//
// A mutating operation refreshes the relevant subtree, reads the device document, computes
// target paths, submits one authoritative write and finally queues a trailing refresh. The
// ACS model is eventually consistent, so the intermediate steps are best-effort: their
// failures are logged and recorded on the result but never returned.
package provisioning

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/logging"
	"github.com/rcourtman/cpe-console/internal/metrics"
	"github.com/rcourtman/cpe-console/internal/paramtree"
	"github.com/rcourtman/cpe-console/internal/vendor"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

// DefaultTimeout bounds each ACS call made by a flow.
const DefaultTimeout = 15 * time.Second

// Gateway is the subset of the ACS client used by the sequencer.
type Gateway interface {
	SubmitTask(ctx context.Context, deviceID string, task genieacs.Task, opts ...genieacs.TaskOption) (*genieacs.Response, error)
	ForwardTask(ctx context.Context, deviceID string, raw json.RawMessage, opts ...genieacs.TaskOption) (*genieacs.Response, error)
	QueryDevice(ctx context.Context, deviceID string) (*paramtree.Node, error)
	ListDeviceIDs(ctx context.Context) ([]string, error)
}

type Config struct {
	// Timeout bounds every individual ACS call.
	Timeout time.Duration
	// ConnectionRequest asks the ACS to contact the device immediately for mutating tasks.
	ConnectionRequest bool
	// BulkConcurrency caps in-flight devices during a bulk reboot.
	BulkConcurrency int
}

type Sequencer struct {
	gw  Gateway
	cfg Config
}

func New(gw Gateway, cfg Config) *Sequencer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = 4
	}
	return &Sequencer{gw: gw, cfg: cfg}
}

// Step records one call made during an operation.
type Step struct {
	Name       string `json:"name"`
	Task       string `json:"task,omitempty"`
	Target     string `json:"target,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of one operation. Response is the authoritative write's reply.
type Result struct {
	OperationID    string
	DeviceID       string
	Response       *genieacs.Response
	Instance       int
	VLANKey        vendor.Resolved
	ServiceListKey string
	Steps          []Step
}

// Operation kinds used in logs and metrics.
const (
	KindAddWAN     = "add_wan"
	KindEditWAN    = "edit_wan"
	KindDeleteWAN  = "delete_wan"
	KindEditWiFi   = "edit_wifi"
	KindRefresh    = "refresh"
	KindReboot     = "reboot"
	KindForward    = "forward"
	KindBulkReboot = "bulk_reboot"
)

// operation carries per-call state through one flow.
type operation struct {
	s      *Sequencer
	ctx    context.Context
	log    zerolog.Logger
	kind   string
	result *Result
}

func (s *Sequencer) begin(ctx context.Context, kind, deviceID string) *operation {
	id := ulid.Make().String()
	ctx = logging.WithOperationID(ctx, id)
	logger := logging.FromContext(ctx).With().
		Str("operation", kind).
		Str("device_id", deviceID).
		Logger()
	logger.Debug().Msg("Provisioning operation started")

	return &operation{
		s:      s,
		ctx:    context.WithoutCancel(ctx),
		log:    logger,
		kind:   kind,
		result: &Result{OperationID: id, DeviceID: deviceID},
	}
}

func (op *operation) taskOptions() []genieacs.TaskOption {
	if op.s.cfg.ConnectionRequest {
		return []genieacs.TaskOption{genieacs.WithConnectionRequest()}
	}
	return nil
}

// submit sends a task and records the step. Failures are returned to the caller.
func (op *operation) submit(step string, task genieacs.Task, opts []genieacs.TaskOption) (*genieacs.Response, error) {
	ctx, cancel := context.WithTimeout(op.ctx, op.s.cfg.Timeout)
	defer cancel()

	resp, err := op.s.gw.SubmitTask(ctx, op.result.DeviceID, task, opts...)
	rec := Step{Name: step, Task: task.Name, Target: task.ObjectName}
	event := op.log.Debug()
	switch {
	case err != nil:
		rec.Error = err.Error()
		event = op.log.Warn().Err(err)
	case !resp.OK():
		rec.StatusCode = resp.StatusCode
		event = op.log.Warn()
	default:
		rec.StatusCode = resp.StatusCode
	}
	op.result.Steps = append(op.result.Steps, rec)
	event.Str("step", step).Str("task", task.Name).Str("target", task.ObjectName).Int("status", rec.StatusCode).Msg("ACS task submitted")
	return resp, err
}

// bestEffort submits a task whose failure must not stop the flow.
func (op *operation) bestEffort(step string, task genieacs.Task) {
	_, _ = op.submit(step, task, op.taskOptions())
}

// readTree fetches the device document and records the step.
func (op *operation) readTree() (*paramtree.Node, error) {
	ctx, cancel := context.WithTimeout(op.ctx, op.s.cfg.Timeout)
	defer cancel()

	tree, err := op.s.gw.QueryDevice(ctx, op.result.DeviceID)
	rec := Step{Name: "read_tree"}
	if err != nil {
		rec.Error = err.Error()
		op.log.Warn().Err(err).Msg("Device tree read failed")
	}
	op.result.Steps = append(op.result.Steps, rec)
	return tree, err
}

// readTreeForTargets reads the tree for path computation. A device the ACS does not return
// falls back to defaults; any other failure aborts the flow.
func (op *operation) readTreeForTargets() (*paramtree.Node, error) {
	tree, err := op.readTree()
	if err == nil {
		return tree, nil
	}
	if internalerrors.TypeOf(err) == internalerrors.ErrorTypeNotFound {
		return nil, nil
	}
	return nil, err
}

func (op *operation) finish(err error) (*Result, error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(internalerrors.TypeOf(err))
		op.log.Warn().Err(err).Msg("Provisioning operation failed")
	case op.result.Response != nil && !op.result.Response.OK():
		outcome = metrics.OutcomeRejected
		op.log.Warn().Int("status", op.result.Response.StatusCode).Msg("ACS rejected provisioning write")
	default:
		op.log.Info().Int("steps", len(op.result.Steps)).Msg("Provisioning operation completed")
	}
	metrics.RecordOperation(op.kind, outcome)
	if err != nil {
		return op.result, err
	}
	return op.result, nil
}

func (op *operation) recordResolution(tag string, resolved vendor.Resolved) {
	op.result.VLANKey = resolved
	label := vendor.Normalize(tag)
	if !vendor.Known(label) {
		label = vendor.Auto
	}
	metrics.RecordVLANKeyResolution(label, string(resolved.Confidence))
	op.log.Debug().
		Str("vlan_key", resolved.Key).
		Str("confidence", string(resolved.Confidence)).
		Msg("VLAN parameter resolved")
}
