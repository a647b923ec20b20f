package provisioning

import (
	"context"
	"strings"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/vendor"
	"github.com/rcourtman/cpe-console/internal/wan"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

// ConnectionTypePPPoERouted is written on every profile created by AddWAN.
const ConnectionTypePPPoERouted = "PPPoE_Routed"

// AddWAN creates a PPPoE profile: addObject, refresh, locate the new instance, write it.
func (s *Sequencer) AddWAN(ctx context.Context, deviceID string, req AddWANRequest) (*Result, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
	if req.Username == "" || req.Password == "" {
		return nil, internalerrors.NewValidationError("username/password required")
	}
	if req.VLANID < 0 || req.VLANID > MaxVLANID {
		return nil, internalerrors.Validationf("vlanId must be between 0 and %d", MaxVLANID)
	}
	if req.ServiceList == "" {
		req.ServiceList = DefaultServiceList
	}

	op := s.begin(ctx, KindAddWAN, deviceID)
	op.bestEffort("add_object", genieacs.AddObject(wan.ConnectionPath))
	op.bestEffort("ensure_structure", genieacs.RefreshObject(wan.ConnectionPath))

	tree, err := op.readTreeForTargets()
	if err != nil {
		return op.finish(err)
	}

	target := wan.SelectTarget(wan.ListInstances(tree), nil, wan.PolicyLast)
	resolved := vendor.ResolveVLANKey(tree, req.Vendor, req.CustomVLANKey)
	serviceKey := vendor.ResolveServiceListKey(req.Vendor)
	op.result.Instance = target
	op.result.ServiceListKey = serviceKey
	op.recordResolution(req.Vendor, resolved)

	write := genieacs.SetParameterValues(
		genieacs.ParameterValue{Path: wan.ParameterPath(target, "ConnectionType"), Value: ConnectionTypePPPoERouted, Type: genieacs.TypeString},
		genieacs.ParameterValue{Path: wan.ParameterPath(target, "Username"), Value: req.Username, Type: genieacs.TypeString},
		genieacs.ParameterValue{Path: wan.ParameterPath(target, "Password"), Value: req.Password, Type: genieacs.TypeString},
		genieacs.ParameterValue{Path: wan.ParameterPath(target, serviceKey), Value: req.ServiceList, Type: genieacs.TypeString},
		genieacs.ParameterValue{Path: wan.ParameterPath(target, resolved.Key), Value: req.VLANID, Type: genieacs.TypeUnsignedInt},
		genieacs.ParameterValue{Path: wan.ParameterPath(target, "Enable"), Value: true, Type: genieacs.TypeBoolean},
	)
	return op.writeThenRefresh(write, genieacs.RefreshObject(wan.ConnectionPath))
}

// EditWAN applies a sparse update to one existing profile.
func (s *Sequencer) EditWAN(ctx context.Context, deviceID string, req EditWANRequest) (*Result, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	op := s.begin(ctx, KindEditWAN, deviceID)
	op.bestEffort("ensure_structure", genieacs.RefreshObject(wan.ConnectionPath))

	tree, err := op.readTreeForTargets()
	if err != nil {
		return op.finish(err)
	}

	target := wan.SelectTarget(wan.ListInstances(tree), req.Index, wan.PolicyLast)
	op.result.Instance = target

	var values []genieacs.ParameterValue
	add := func(name string, value any, typ string) {
		values = append(values, genieacs.ParameterValue{Path: wan.ParameterPath(target, name), Value: value, Type: typ})
	}
	if req.ConnectionType != nil {
		add("ConnectionType", *req.ConnectionType, genieacs.TypeString)
	}
	if req.Username != nil {
		add("Username", *req.Username, genieacs.TypeString)
	}
	if req.Password != nil {
		add("Password", *req.Password, genieacs.TypeString)
	}
	if req.ServiceList != nil {
		op.result.ServiceListKey = vendor.ResolveServiceListKey(req.Vendor)
		add(op.result.ServiceListKey, *req.ServiceList, genieacs.TypeString)
	}
	if req.VLANID != nil {
		resolved := vendor.ResolveVLANKey(tree, req.Vendor, req.CustomVLANKey)
		op.recordResolution(req.Vendor, resolved)
		add(resolved.Key, *req.VLANID, genieacs.TypeUnsignedInt)
	}
	if req.Enable != nil {
		add("Enable", *req.Enable, genieacs.TypeBoolean)
	}

	return op.writeThenRefresh(genieacs.SetParameterValues(values...), genieacs.RefreshObject(wan.ConnectionPath))
}

// normalize drops blank fields and rejects requests with nothing to write.
func (r *EditWANRequest) normalize() error {
	if r.Index != nil && *r.Index < 1 {
		return internalerrors.NewValidationError("index must be a positive integer")
	}
	if r.VLANID != nil && (*r.VLANID < 0 || *r.VLANID > MaxVLANID) {
		return internalerrors.Validationf("vlanId must be between 0 and %d", MaxVLANID)
	}
	if r.ConnectionType != nil && strings.TrimSpace(*r.ConnectionType) == "" {
		r.ConnectionType = nil
	}
	if r.ConnectionType == nil && r.Username == nil && r.Password == nil &&
		r.ServiceList == nil && r.VLANID == nil && r.Enable == nil {
		return internalerrors.NewValidationError("No updatable fields provided")
	}
	return nil
}

// DeleteWAN removes one profile instance, the lowest when none is named and
// instance 1 when the device reports none.
func (s *Sequencer) DeleteWAN(ctx context.Context, deviceID string, req DeleteWANRequest) (*Result, error) {
	if req.Index != nil && *req.Index < 1 {
		return nil, internalerrors.NewValidationError("index must be a positive integer")
	}

	op := s.begin(ctx, KindDeleteWAN, deviceID)

	target := 0
	if req.Index != nil {
		target = *req.Index
	} else {
		op.bestEffort("ensure_structure", genieacs.RefreshObject(wan.ConnectionPath))
		tree, err := op.readTreeForTargets()
		if err != nil {
			return op.finish(err)
		}
		target = wan.SelectTarget(wan.ListInstances(tree), nil, wan.PolicyFirst)
	}
	op.result.Instance = target

	return op.writeThenRefresh(genieacs.DeleteObject(wan.InstancePath(target)+"."), genieacs.RefreshObject(wan.ConnectionPath))
}

// writeThenRefresh submits the authoritative write and, unless it never reached the ACS,
// a trailing refresh.
func (op *operation) writeThenRefresh(write, refresh genieacs.Task) (*Result, error) {
	resp, err := op.submit("write", write, op.taskOptions())
	if err != nil {
		return op.finish(err)
	}
	op.result.Response = resp
	op.bestEffort("trailing_refresh", refresh)
	return op.finish(nil)
}
