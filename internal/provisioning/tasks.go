package provisioning

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"golang.org/x/sync/errgroup"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/metrics"
	"github.com/rcourtman/cpe-console/internal/wan"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

// Refresh targets.
const (
	RefreshDevice = "device"
	RefreshWAN    = "wan"
	RefreshWiFi   = "wifi"
)

const (
	deviceInfoPath        = "InternetGatewayDevice.DeviceInfo"
	virtualParametersPath = "VirtualParameters"
	allWLANPath           = "InternetGatewayDevice.LANDevice.*.WLANConfiguration"
)

// RefreshTarget returns the object refreshed for a refresh type.
func RefreshTarget(kind string) (string, bool) {
	switch kind {
	case RefreshDevice:
		return deviceInfoPath, true
	case RefreshWAN:
		return wan.ConnectionPath, true
	case RefreshWiFi:
		return allWLANPath, true
	default:
		return "", false
	}
}

// Refresh queues a refreshObject for one area of the device. Device refreshes also
// refresh VirtualParameters once the primary task was accepted.
func (s *Sequencer) Refresh(ctx context.Context, deviceID, kind string) (*Result, error) {
	target, ok := RefreshTarget(kind)
	if !ok {
		return nil, internalerrors.NewValidationError("Invalid refresh type. Must be 'device', 'wan', or 'wifi'")
	}

	op := s.begin(ctx, KindRefresh, deviceID)
	resp, err := op.submit("refresh", genieacs.RefreshObject(target), nil)
	if err != nil {
		return op.finish(err)
	}
	op.result.Response = resp
	if resp.OK() && kind == RefreshDevice {
		_, _ = op.submit("refresh_virtual_parameters", genieacs.RefreshObject(virtualParametersPath), nil)
	}
	return op.finish(nil)
}

// Reboot queues a reboot task.
func (s *Sequencer) Reboot(ctx context.Context, deviceID string) (*Result, error) {
	op := s.begin(ctx, KindReboot, deviceID)
	resp, err := op.submit("reboot", genieacs.Reboot(), op.taskOptions())
	if err != nil {
		return op.finish(err)
	}
	op.result.Response = resp
	return op.finish(nil)
}

// Forward posts a caller-built task unchanged.
func (s *Sequencer) Forward(ctx context.Context, deviceID string, raw json.RawMessage) (*Result, error) {
	op := s.begin(ctx, KindForward, deviceID)

	callCtx, cancel := context.WithTimeout(op.ctx, s.cfg.Timeout)
	defer cancel()
	resp, err := s.gw.ForwardTask(callCtx, deviceID, raw, op.taskOptions()...)
	rec := Step{Name: "forward"}
	if err != nil {
		rec.Error = err.Error()
	} else {
		rec.StatusCode = resp.StatusCode
	}
	op.result.Steps = append(op.result.Steps, rec)
	if err != nil {
		return op.finish(err)
	}
	op.result.Response = resp
	return op.finish(nil)
}

// BulkRebootRequest selects devices by id and/or a wildcard pattern over all device ids.
type BulkRebootRequest struct {
	DeviceIDs []string `json:"deviceIds"`
	Pattern   string   `json:"pattern"`
}

// DeviceOutcome is the reboot result for one device of a bulk request.
type DeviceOutcome struct {
	DeviceID    string `json:"deviceId"`
	OperationID string `json:"operationId,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether the ACS accepted the reboot.
func (o DeviceOutcome) OK() bool {
	return o.Error == "" && o.StatusCode >= 200 && o.StatusCode < 300
}

// BulkReboot reboots every selected device, each as an independent operation.
func (s *Sequencer) BulkReboot(ctx context.Context, req BulkRebootRequest) ([]DeviceOutcome, error) {
	ids, err := s.selectDevices(ctx, req)
	if err != nil {
		return nil, err
	}

	outcomes := make([]DeviceOutcome, len(ids))
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(s.cfg.BulkConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			out := DeviceOutcome{DeviceID: id}
			res, err := s.Reboot(gctx, id)
			if res != nil {
				out.OperationID = res.OperationID
				if res.Response != nil {
					out.StatusCode = res.Response.StatusCode
				}
			}
			if err != nil {
				out.Error = internalerrors.Message(err)
			}
			result := "ok"
			if !out.OK() {
				result = "failed"
			}
			metrics.RecordBulkRebootDevice(result)

			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

func (s *Sequencer) selectDevices(ctx context.Context, req BulkRebootRequest) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	addID := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range req.DeviceIDs {
		addID(id)
	}

	pattern := strings.TrimSpace(req.Pattern)
	if pattern != "" {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()
		all, err := s.gw.ListDeviceIDs(callCtx)
		if err != nil {
			return nil, err
		}
		sort.Strings(all)
		for _, id := range all {
			if wildcard.Match(pattern, id) {
				addID(id)
			}
		}
	}

	if len(ids) == 0 {
		if pattern != "" {
			return nil, internalerrors.Validationf("no devices match pattern %q", pattern)
		}
		return nil, internalerrors.NewValidationError("deviceIds or pattern required")
	}
	return ids, nil
}
