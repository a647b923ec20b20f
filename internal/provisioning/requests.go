package provisioning

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
)

// MaxVLANID is the highest assignable 802.1Q VLAN identifier.
const MaxVLANID = 4094

// DefaultServiceList is written when the caller names no service list.
const DefaultServiceList = "INTERNET"

// AddWANRequest describes a new PPPoE WAN profile.
type AddWANRequest struct {
	Username      string
	Password      string
	VLANID        int
	ServiceList   string
	Vendor        string
	CustomVLANKey string
}

// EditWANRequest is a sparse update of an existing profile. Nil fields are left alone.
type EditWANRequest struct {
	Index          *int
	Vendor         string
	CustomVLANKey  string
	ConnectionType *string
	Username       *string
	Password       *string
	ServiceList    *string
	VLANID         *int
	Enable         *bool
}

// DeleteWANRequest names the profile to remove. A nil Index targets the lowest instance.
type DeleteWANRequest struct {
	Index *int
}

// EditWiFiRequest changes the primary SSID and/or its passphrase.
type EditWiFiRequest struct {
	SSID     *string
	Password *string
}

type wanPayload struct {
	Index          any     `json:"index"`
	Username       *string `json:"username"`
	Password       *string `json:"password"`
	VLANID         any     `json:"vlanId"`
	ServiceList    *string `json:"serviceList"`
	Vendor         string  `json:"vendor"`
	CustomVLANKey  string  `json:"customVlanKey"`
	ConnectionType *string `json:"connectionType"`
	Enable         any     `json:"enable"`
}

type wifiPayload struct {
	SSID     *string `json:"ssid"`
	Password *string `json:"password"`
}

func decodePayload(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return internalerrors.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

// DecodeAddWAN parses an add-profile body.
func DecodeAddWAN(body []byte) (AddWANRequest, error) {
	var p wanPayload
	if err := decodePayload(body, &p); err != nil {
		return AddWANRequest{}, err
	}

	req := AddWANRequest{
		Username:      strings.TrimSpace(deref(p.Username)),
		Password:      strings.TrimSpace(deref(p.Password)),
		ServiceList:   deref(p.ServiceList),
		Vendor:        p.Vendor,
		CustomVLANKey: p.CustomVLANKey,
	}
	if req.ServiceList == "" {
		req.ServiceList = DefaultServiceList
	}
	if p.VLANID != nil {
		vlan, err := ParseVLANID(p.VLANID)
		if err != nil {
			return AddWANRequest{}, err
		}
		req.VLANID = vlan
	}
	return req, nil
}

// DecodeEditWAN parses an edit-profile body.
func DecodeEditWAN(body []byte) (EditWANRequest, error) {
	var p wanPayload
	if err := decodePayload(body, &p); err != nil {
		return EditWANRequest{}, err
	}

	req := EditWANRequest{
		Vendor:        p.Vendor,
		CustomVLANKey: p.CustomVLANKey,
		Username:      p.Username,
		Password:      p.Password,
		ServiceList:   p.ServiceList,
	}
	if p.ConnectionType != nil && strings.TrimSpace(*p.ConnectionType) != "" {
		req.ConnectionType = p.ConnectionType
	}
	if p.Index != nil {
		idx, err := ParseIndex(p.Index)
		if err != nil {
			return EditWANRequest{}, err
		}
		req.Index = &idx
	}
	if p.VLANID != nil {
		vlan, err := ParseVLANID(p.VLANID)
		if err != nil {
			return EditWANRequest{}, err
		}
		req.VLANID = &vlan
	}
	if p.Enable != nil {
		enable, err := ParseEnable(p.Enable)
		if err != nil {
			return EditWANRequest{}, err
		}
		req.Enable = &enable
	}
	return req, nil
}

// DecodeDeleteWAN parses a delete-profile body. An empty body is allowed.
func DecodeDeleteWAN(body []byte) (DeleteWANRequest, error) {
	var p wanPayload
	if err := decodePayload(body, &p); err != nil {
		return DeleteWANRequest{}, err
	}
	if p.Index == nil {
		return DeleteWANRequest{}, nil
	}
	idx, err := ParseIndex(p.Index)
	if err != nil {
		return DeleteWANRequest{}, err
	}
	return DeleteWANRequest{Index: &idx}, nil
}

// DecodeEditWiFi parses a WiFi update body.
func DecodeEditWiFi(body []byte) (EditWiFiRequest, error) {
	var p wifiPayload
	if err := decodePayload(body, &p); err != nil {
		return EditWiFiRequest{}, err
	}
	return EditWiFiRequest{SSID: p.SSID, Password: p.Password}, nil
}

// ParseVLANID accepts a JSON number or numeric string in 0..4094.
func ParseVLANID(v any) (int, error) {
	n, ok := toInt(v)
	if !ok {
		return 0, internalerrors.NewValidationError("vlanId must be a number")
	}
	if n < 0 || n > MaxVLANID {
		return 0, internalerrors.Validationf("vlanId must be between 0 and %d", MaxVLANID)
	}
	return n, nil
}

// ParseIndex accepts a positive instance index as a number or numeric string.
func ParseIndex(v any) (int, error) {
	n, ok := toInt(v)
	if !ok || n < 1 {
		return 0, internalerrors.NewValidationError("index must be a positive integer")
	}
	return n, nil
}

// ParseEnable accepts booleans, numbers and boolean strings such as "true" or "0".
func ParseEnable(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, internalerrors.NewValidationError("enable must be a boolean")
		}
		return b, nil
	default:
		return false, internalerrors.NewValidationError("enable must be a boolean")
	}
}

func toInt(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		return t, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
