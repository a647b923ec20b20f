// Package wan locates WANPPPConnection instances in a device parameter tree
// and picks the instance a provisioning flow targets.
package wan

import (
	"sort"
	"strconv"

	"github.com/rcourtman/cpe-console/internal/paramtree"
)

// ConnectionPath is the WANPPPConnection collection on the first WAN connection device.
const ConnectionPath = "InternetGatewayDevice.WANDevice.1.WANConnectionDevice.1.WANPPPConnection"

// FallbackIndex is used when the collection has no instances yet.
const FallbackIndex = 1

// Policy selects which instance a flow targets when the caller names none.
type Policy int

const (
	// PolicyLast targets the highest index (add and edit flows).
	PolicyLast Policy = iota
	// PolicyFirst targets the lowest index (delete flow).
	PolicyFirst
)

func (p Policy) String() string {
	switch p {
	case PolicyFirst:
		return "first"
	default:
		return "last"
	}
}

// InstancePath returns the object path of one WANPPPConnection instance.
func InstancePath(index int) string {
	return ConnectionPath + "." + strconv.Itoa(index)
}

// ParameterPath returns the full path of a parameter on an instance.
func ParameterPath(index int, name string) string {
	return InstancePath(index) + "." + name
}

// Collection returns the WANPPPConnection branch of a device tree.
func Collection(tree *paramtree.Node) (*paramtree.Node, bool) {
	node, ok := tree.Lookup(ConnectionPath)
	if !ok || !node.IsBranch() {
		return nil, false
	}
	return node, true
}

// ListInstances returns the numeric instance indices present in the tree, ascending.
func ListInstances(tree *paramtree.Node) []int {
	collection, ok := Collection(tree)
	if !ok {
		return []int{}
	}
	indices := make([]int, 0, len(collection.Keys()))
	for _, key := range collection.Keys() {
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 {
			continue
		}
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices
}

// SelectTarget picks the instance to operate on. An explicit index always wins.
func SelectTarget(indices []int, explicit *int, policy Policy) int {
	if explicit != nil {
		return *explicit
	}
	if len(indices) == 0 {
		return FallbackIndex
	}
	target := indices[0]
	for _, idx := range indices[1:] {
		if (policy == PolicyFirst && idx < target) || (policy == PolicyLast && idx > target) {
			target = idx
		}
	}
	return target
}
