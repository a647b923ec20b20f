// Package paramtree models the TR-069 parameter documents returned by the ACS.
//
// A document is a tree of branches keyed by path segment. Leaves are objects that carry a
// "_value" attribute; every other object is a branch. Attributes whose key begins with an
// underscore are metadata of the branch (such as "_id" or "_lastInform") and never appear
// as children.
package paramtree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	valueKey     = "_value"
	typeKey      = "_type"
	metaPrefix   = "_"
	pathSplitter = "."
)

// Node is either a leaf holding a scalar value or a branch holding children.
type Node struct {
	leaf     bool
	value    any
	typ      string
	children map[string]*Node
	meta     map[string]any
}

// Parse decodes a JSON device document.
func Parse(data []byte) (*Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode parameter tree: %w", err)
	}
	return FromValue(raw), nil
}

// FromValue converts a decoded JSON value into a tree. Scalars become leaves; arrays are
// kept as opaque leaf values.
func FromValue(raw any) *Node {
	obj, ok := raw.(map[string]any)
	if !ok {
		return &Node{leaf: true, value: raw}
	}

	if v, ok := obj[valueKey]; ok {
		n := &Node{leaf: true, value: v}
		if t, ok := obj[typeKey].(string); ok {
			n.typ = t
		}
		return n
	}

	n := &Node{children: make(map[string]*Node, len(obj))}
	for k, v := range obj {
		if strings.HasPrefix(k, metaPrefix) {
			if n.meta == nil {
				n.meta = make(map[string]any)
			}
			n.meta[k] = v
			continue
		}
		n.children[k] = FromValue(v)
	}
	return n
}

// NewBranch builds a branch from the given children.
func NewBranch(children map[string]*Node) *Node {
	if children == nil {
		children = map[string]*Node{}
	}
	return &Node{children: children}
}

// NewLeaf builds a leaf with a value and an optional xsd type tag.
func NewLeaf(value any, typ string) *Node {
	return &Node{leaf: true, value: value, typ: typ}
}

// IsLeaf reports whether n holds a value.
func (n *Node) IsLeaf() bool {
	return n != nil && n.leaf
}

// IsBranch reports whether n holds children.
func (n *Node) IsBranch() bool {
	return n != nil && !n.leaf
}

// Value returns the leaf value, or nil for branches.
func (n *Node) Value() any {
	if !n.IsLeaf() {
		return nil
	}
	return n.value
}

// Type returns the leaf's xsd type tag, if the ACS reported one.
func (n *Node) Type() string {
	if !n.IsLeaf() {
		return ""
	}
	return n.typ
}

// Child returns the direct child named seg.
func (n *Node) Child(seg string) (*Node, bool) {
	if !n.IsBranch() {
		return nil, false
	}
	c, ok := n.children[seg]
	return c, ok
}

// Has reports whether n has a direct child named seg.
func (n *Node) Has(seg string) bool {
	_, ok := n.Child(seg)
	return ok
}

// Lookup walks a dotted path. A trailing dot is ignored.
func (n *Node) Lookup(path string) (*Node, bool) {
	path = strings.TrimSuffix(path, pathSplitter)
	if path == "" {
		return n, n != nil
	}
	cur := n
	for _, seg := range strings.Split(path, pathSplitter) {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Keys returns the child names of a branch in lexical order.
func (n *Node) Keys() []string {
	if !n.IsBranch() {
		return nil
	}
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Children returns the children of a branch. The map must not be modified.
func (n *Node) Children() map[string]*Node {
	if !n.IsBranch() {
		return nil
	}
	return n.children
}

// LeafValue returns the value of the leaf at path.
func (n *Node) LeafValue(path string) (any, bool) {
	leaf, ok := n.Lookup(path)
	if !ok || !leaf.IsLeaf() {
		return nil, false
	}
	return leaf.value, true
}

// String returns the leaf at path rendered as a string. Missing, null and
// non-leaf nodes report false.
func (n *Node) String(path string) (string, bool) {
	v, ok := n.LeafValue(path)
	if !ok || v == nil {
		return "", false
	}
	return Stringify(v), true
}

// Meta returns a metadata attribute of a branch.
func (n *Node) Meta(key string) (any, bool) {
	if !n.IsBranch() || n.meta == nil {
		return nil, false
	}
	v, ok := n.meta[key]
	return v, ok
}

// MetaString returns a string metadata attribute of a branch.
func (n *Node) MetaString(key string) (string, bool) {
	v, ok := n.Meta(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Stringify renders a leaf value the way the ACS displays it.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
