// Package inventory derives the console's device views from ACS device documents.
package inventory

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rcourtman/cpe-console/internal/paramtree"
	"github.com/rcourtman/cpe-console/internal/vendor"
	"github.com/rcourtman/cpe-console/internal/wan"
)

// OnlineWindow is how recent the last inform must be for a device to count as online.
const OnlineWindow = 10 * time.Minute

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

const (
	wlanPath  = "InternetGatewayDevice.LANDevice.1.WLANConfiguration.1"
	hostsPath = "InternetGatewayDevice.LANDevice.1.Hosts.Host"
	vpPath    = "VirtualParameters"
)

// Summary is one row of the device list.
type Summary struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	LastInform       time.Time `json:"lastInform,omitzero"`
	SerialNumber     string    `json:"serialNumber,omitempty"`
	ProductClass     string    `json:"productClass,omitempty"`
	Manufacturer     string    `json:"manufacturer,omitempty"`
	RXPower          string    `json:"rxPower,omitempty"`
	PPPoEUsername    string    `json:"pppoeUsername,omitempty"`
	PPPoEIP          string    `json:"pppoeIp,omitempty"`
	SSID             string    `json:"ssid,omitempty"`
	ConnectedDevices int       `json:"connectedDevices"`
}

// Host is a LAN client reported by the device.
type Host struct {
	HostName   string `json:"hostname,omitempty"`
	IPAddress  string `json:"ip,omitempty"`
	MACAddress string `json:"mac,omitempty"`
}

// Instance describes one WANPPPConnection profile.
type Instance struct {
	Index          int    `json:"index"`
	Username       string `json:"username,omitempty"`
	ConnectionType string `json:"connectionType,omitempty"`
	Enable         *bool  `json:"enable,omitempty"`
	VLANID         string `json:"vlanId,omitempty"`
	ServiceList    string `json:"serviceList"`
}

// Detail is the device page view.
type Detail struct {
	Summary
	VLANID        string     `json:"vlanId,omitempty"`
	TransmitPower string     `json:"transmitPower,omitempty"`
	Hosts         []Host     `json:"hosts"`
	WANInstances  []Instance `json:"wanInstances"`
}

// Summarize builds the list view of a device document.
func Summarize(tree *paramtree.Node, now time.Time) Summary {
	s := Summary{Status: StatusOffline}

	s.SerialNumber = metaDeviceID(tree, "_SerialNumber")
	if id, ok := tree.MetaString("_id"); ok && id != "" {
		s.ID = id
	} else {
		s.ID = s.SerialNumber
	}
	s.ProductClass = metaDeviceID(tree, "_ProductClass")
	s.Manufacturer = metaDeviceID(tree, "_Manufacturer")

	if raw, ok := tree.MetaString("_lastInform"); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			s.LastInform = ts
			if now.Sub(ts) < OnlineWindow {
				s.Status = StatusOnline
			}
		}
	}

	s.RXPower = nonBlank(tree, vpPath+".RXPower")
	s.PPPoEUsername = nonBlank(tree, vpPath+".pppoeUsername")
	if s.PPPoEUsername == "" {
		s.PPPoEUsername = nonBlank(tree, vpPath+".pppoeUsername2")
	}
	s.PPPoEIP = nonBlank(tree, vpPath+".pppoeIP")
	s.SSID = nonBlank(tree, wlanPath+".SSID")
	if v := nonBlank(tree, vpPath+".activedevices"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			s.ConnectedDevices = int(n)
		}
	}
	return s
}

// Describe builds the detail view of a device document.
func Describe(tree *paramtree.Node, now time.Time) Detail {
	d := Detail{
		Summary:      Summarize(tree, now),
		Hosts:        []Host{},
		WANInstances: []Instance{},
	}

	if sample, ok := vendor.SampleInstance(tree); ok {
		d.VLANID, _ = vendor.ReadVLANID(sample)
	}
	if tp := nonBlank(tree, wlanPath+".TransmitPower"); tp != "" {
		if !strings.HasSuffix(tp, "%") {
			tp += "%"
		}
		d.TransmitPower = tp
	}

	if hosts, ok := tree.Lookup(hostsPath); ok {
		for _, key := range numericOrder(hosts.Keys()) {
			h, _ := hosts.Child(key)
			if !h.IsBranch() {
				continue
			}
			d.Hosts = append(d.Hosts, Host{
				HostName:   nonBlank(h, "HostName"),
				IPAddress:  nonBlank(h, "IPAddress"),
				MACAddress: nonBlank(h, "MACAddress"),
			})
		}
	}

	for _, idx := range wan.ListInstances(tree) {
		if inst, ok := ReadInstance(tree, idx); ok {
			d.WANInstances = append(d.WANInstances, inst)
		}
	}
	return d
}

// ReadInstance extracts one WANPPPConnection profile.
func ReadInstance(tree *paramtree.Node, index int) (Instance, bool) {
	node, ok := tree.Lookup(wan.InstancePath(index))
	if !ok || !node.IsBranch() {
		return Instance{}, false
	}

	inst := Instance{
		Index:          index,
		Username:       nonBlank(node, "Username"),
		ConnectionType: nonBlank(node, "ConnectionType"),
		ServiceList:    "INTERNET",
	}
	if v, ok := node.LeafValue("Enable"); ok {
		if b, ok := asBool(v); ok {
			inst.Enable = &b
		}
	}
	inst.VLANID, _ = vendor.ReadVLANID(node)
	if sl, ok := vendor.ReadServiceList(node); ok {
		inst.ServiceList = sl
	}
	return inst, true
}

func metaDeviceID(tree *paramtree.Node, key string) string {
	raw, ok := tree.Meta("_deviceId")
	if !ok {
		return ""
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

func nonBlank(n *paramtree.Node, path string) string {
	v, ok := n.String(path)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	return false, false
}

// numericOrder sorts keys numerically where possible, keeping non-numeric keys last.
func numericOrder(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i])
		b, errB := strconv.Atoi(out[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
