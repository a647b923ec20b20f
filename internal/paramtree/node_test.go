package paramtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDevice = `{
  "_id": "00259E-HG8245H-4857544312345678",
  "_lastInform": "2026-10-14T08:00:00.000Z",
  "_deviceId": {"_SerialNumber": "4857544312345678", "_ProductClass": "HG8245H"},
  "InternetGatewayDevice": {
    "_object": true,
    "WANDevice": {"1": {"WANConnectionDevice": {"1": {"WANPPPConnection": {
      "_object": true,
      "1": {"Username": {"_value": "cpe1", "_type": "xsd:string"}, "X_HW_VLANID": {"_value": 220}},
      "x": {}
    }}}}},
    "LANDevice": {"1": {"WLANConfiguration": {"1": {"SSID": {"_value": "home"}, "Enable": {"_value": true}}}}}
  }
}`

func TestParseSeparatesLeavesBranchesAndMeta(t *testing.T) {
	root, err := Parse([]byte(sampleDevice))
	require.NoError(t, err)

	id, ok := root.MetaString("_id")
	require.True(t, ok)
	assert.Equal(t, "00259E-HG8245H-4857544312345678", id)
	assert.False(t, root.Has("_id"), "metadata must not appear as a child")

	ppp, ok := root.Lookup("InternetGatewayDevice.WANDevice.1.WANConnectionDevice.1.WANPPPConnection")
	require.True(t, ok)
	assert.True(t, ppp.IsBranch())
	assert.Equal(t, []string{"1", "x"}, ppp.Keys())

	user, ok := root.Lookup("InternetGatewayDevice.WANDevice.1.WANConnectionDevice.1.WANPPPConnection.1.Username")
	require.True(t, ok)
	assert.True(t, user.IsLeaf())
	assert.Equal(t, "cpe1", user.Value())
	assert.Equal(t, "xsd:string", user.Type())
}

func TestLookupIsSafeThroughMissingAndLeafSegments(t *testing.T) {
	root, err := Parse([]byte(sampleDevice))
	require.NoError(t, err)

	_, ok := root.Lookup("InternetGatewayDevice.WANDevice.2.WANConnectionDevice")
	assert.False(t, ok)

	_, ok = root.Lookup("InternetGatewayDevice.LANDevice.1.WLANConfiguration.1.SSID.Deeper")
	assert.False(t, ok, "walking through a leaf must fail")

	var nilNode *Node
	_, ok = nilNode.Lookup("a.b")
	assert.False(t, ok)
	assert.Nil(t, nilNode.Keys())
	assert.False(t, nilNode.Has("a"))

	wlan, ok := root.Lookup("InternetGatewayDevice.LANDevice.1.WLANConfiguration.1.")
	require.True(t, ok, "trailing dot is ignored")
	assert.True(t, wlan.Has("SSID"))
}

func TestStringRendersScalars(t *testing.T) {
	root, err := Parse([]byte(sampleDevice))
	require.NoError(t, err)

	s, ok := root.String("InternetGatewayDevice.WANDevice.1.WANConnectionDevice.1.WANPPPConnection.1.X_HW_VLANID")
	require.True(t, ok)
	assert.Equal(t, "220", s)

	s, ok = root.String("InternetGatewayDevice.LANDevice.1.WLANConfiguration.1.Enable")
	require.True(t, ok)
	assert.Equal(t, "true", s)

	_, ok = root.String("InternetGatewayDevice.LANDevice.1.WLANConfiguration")
	assert.False(t, ok, "branches have no string value")
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"broken"`))
	assert.Error(t, err)
}

func TestNullValueIsLeafWithoutString(t *testing.T) {
	root := FromValue(map[string]any{"A": map[string]any{"_value": nil}})
	a, ok := root.Child("A")
	require.True(t, ok)
	assert.True(t, a.IsLeaf())
	_, ok = root.String("A")
	assert.False(t, ok)
}
