package wan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcourtman/cpe-console/internal/paramtree"
)

func deviceWithKeys(keys ...string) *paramtree.Node {
	ppp := map[string]any{"_object": true, "_writable": true}
	for _, k := range keys {
		ppp[k] = map[string]any{"Enable": map[string]any{"_value": true}}
	}
	return paramtree.FromValue(map[string]any{
		"InternetGatewayDevice": map[string]any{
			"WANDevice": map[string]any{"1": map[string]any{
				"WANConnectionDevice": map[string]any{"1": map[string]any{
					"WANPPPConnection": ppp,
				}},
			}},
		},
	})
}

func TestListInstancesKeepsNumericKeysAscending(t *testing.T) {
	tree := deviceWithKeys("1", "3", "2", "x", "10")
	assert.Equal(t, []int{1, 2, 3, 10}, ListInstances(tree))
}

func TestListInstancesMissingCollection(t *testing.T) {
	for name, tree := range map[string]*paramtree.Node{
		"nil":     nil,
		"empty":   paramtree.NewBranch(nil),
		"no-keys": deviceWithKeys(),
	} {
		got := ListInstances(tree)
		assert.NotNilf(t, got, "%s: result must be an empty slice", name)
		assert.Emptyf(t, got, name)
	}
}

func TestSelectTarget(t *testing.T) {
	three := 3
	zero := 0
	cases := []struct {
		name     string
		indices  []int
		explicit *int
		policy   Policy
		want     int
	}{
		{"last picks max", []int{1, 2, 3}, nil, PolicyLast, 3},
		{"first picks min", []int{2, 5, 4}, nil, PolicyFirst, 2},
		{"unsorted last", []int{7, 2, 9, 1}, nil, PolicyLast, 9},
		{"empty falls back", []int{}, nil, PolicyLast, FallbackIndex},
		{"nil falls back", nil, nil, PolicyFirst, FallbackIndex},
		{"explicit wins", []int{1, 2}, &three, PolicyLast, 3},
		{"explicit wins on empty", nil, &three, PolicyFirst, 3},
		{"explicit zero passes through", []int{4}, &zero, PolicyLast, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectTarget(tc.indices, tc.explicit, tc.policy))
		})
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "InternetGatewayDevice.WANDevice.1.WANConnectionDevice.1.WANPPPConnection.2", InstancePath(2))
	assert.Equal(t, "InternetGatewayDevice.WANDevice.1.WANConnectionDevice.1.WANPPPConnection.1.Username", ParameterPath(1, "Username"))
	assert.Equal(t, "last", PolicyLast.String())
	assert.Equal(t, "first", PolicyFirst.String())
}
