package capability

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faltung/homed-google-bridge/internal/devicerepo"
	"github.com/faltung/homed-google-bridge/internal/googlemodel"
	"github.com/faltung/homed-google-bridge/internal/gwmodel"
	"github.com/faltung/homed-google-bridge/internal/traits"
)

func deviceIDs(devices []googlemodel.Device) []string {
	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}
	sort.Strings(ids)
	return ids
}

// TestMultiEndpointSplitProjection mirrors spec.md §8 scenario 2: a
// device with two switch endpoints splits into two SWITCH GoogleDevices.
func TestMultiEndpointSplitProjection(t *testing.T) {
	d := gwmodel.Device{
		Key: "dev1",
		Endpoints: []gwmodel.Endpoint{
			{ID: 1, Exposes: []string{"switch"}},
			{ID: 2, Exposes: []string{"switch"}},
		},
	}

	devices := MapToGoogleDevices(d, "c-1")
	require.Len(t, devices, 2)
	assert.Equal(t, []string{"c-1/dev1#1", "c-1/dev1#2"}, deviceIDs(devices))
	for _, gd := range devices {
		assert.Equal(t, TypeSwitch, gd.Type)
		assert.Equal(t, []string{"action.devices.traits.OnOff"}, gd.Traits)
	}
}

func TestSingleEndpointDoesNotSplit(t *testing.T) {
	d := gwmodel.Device{
		Key:       "dev1",
		Endpoints: []gwmodel.Endpoint{{ID: 0, Exposes: []string{"switch"}}},
	}
	devices := MapToGoogleDevices(d, "c-1")
	require.Len(t, devices, 1)
	assert.Equal(t, "c-1/dev1", devices[0].ID)
}

func TestDifferingPrimaryExposeDoesNotSplit(t *testing.T) {
	d := gwmodel.Device{
		Key: "dev1",
		Endpoints: []gwmodel.Endpoint{
			{ID: 1, Exposes: []string{"switch"}},
			{ID: 2, Exposes: []string{"light"}},
		},
	}
	devices := MapToGoogleDevices(d, "c-1")
	require.Len(t, devices, 1)
	assert.Equal(t, "c-1/dev1", devices[0].ID)
	assert.Contains(t, devices[0].Traits, "action.devices.traits.OnOff")
}

func TestEveryGoogleIDRoundTrips(t *testing.T) {
	d := gwmodel.Device{
		Key: "dev1",
		Endpoints: []gwmodel.Endpoint{
			{ID: 1, Exposes: []string{"switch"}},
			{ID: 2, Exposes: []string{"switch"}},
		},
	}
	for _, gd := range MapToGoogleDevices(d, "c-1") {
		parsed, err := googlemodel.FromGoogleDeviceID(gd.ID)
		require.NoError(t, err)
		assert.Equal(t, "c-1", parsed.ClientID)
		assert.Equal(t, "dev1", parsed.DeviceKey)
		assert.True(t, parsed.HasEndpoint)
	}
}

func TestDeviceTypeDetectionPriority(t *testing.T) {
	cases := []struct {
		exposes []string
		want    string
	}{
		{[]string{"smoke", "temperature"}, TypeSmokeDetector},
		{[]string{"temperature"}, TypeSensor},
		{[]string{"outlet"}, TypeOutlet},
		{[]string{"light"}, TypeLight},
		{[]string{"lock"}, TypeLock},
		{[]string{"thermostat"}, TypeThermostat},
		{[]string{"cover"}, TypeBlinds},
		{[]string{"switch"}, TypeSwitch},
		{[]string{}, TypeSensor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, detectDeviceType(tc.exposes), "exposes=%v", tc.exposes)
	}
}

// TestStateChangeReporting mirrors spec.md §8 scenario 4.
func TestStateChangeReporting(t *testing.T) {
	d := gwmodel.Device{
		Key: "dev3",
		Endpoints: []gwmodel.Endpoint{
			{ID: 0, Exposes: []string{"light"}, Options: map[string]interface{}{"light": []string{"level"}}},
		},
	}
	prev := gwmodel.State{"on": true, "level": 128.0}
	next := gwmodel.State{"on": true, "level": 255.0}

	updates := GetStateUpdates(d, "c-1", prev, next)
	require.Len(t, updates, 1)
	got := updates["c-1/dev3"]
	assert.Equal(t, true, got["online"])
	assert.Equal(t, true, got["on"])
	assert.Equal(t, 100, got["brightness"])
}

func TestGetStateUpdatesNoneWhenUnchanged(t *testing.T) {
	d := gwmodel.Device{
		Key:       "dev1",
		Endpoints: []gwmodel.Endpoint{{Exposes: []string{"switch"}}},
	}
	state := gwmodel.State{"on": true}
	assert.Nil(t, GetStateUpdates(d, "c-1", state, state))
}

func TestMapToGoogleStateOnlineDefaultsTrue(t *testing.T) {
	d := gwmodel.Device{Key: "dev1", Endpoints: []gwmodel.Endpoint{{Exposes: []string{"switch"}}}}
	got := MapToGoogleState(d, gwmodel.State{"on": true})
	assert.Equal(t, true, got["online"])
}

func TestMapToGoogleStateOnlineFalseWhenUnavailable(t *testing.T) {
	d := gwmodel.Device{Key: "dev1", Endpoints: []gwmodel.Endpoint{{Exposes: []string{"switch"}}}}
	got := MapToGoogleState(d, gwmodel.State{"on": true, "available": false})
	assert.Equal(t, false, got["online"])
}

func TestMapExecutionRequestPlansOnlyMatchedDevices(t *testing.T) {
	all := []devicerepo.DeviceEntry{
		{ClientID: "c-1", Device: gwmodel.Device{Key: "dev1", Endpoints: []gwmodel.Endpoint{{Exposes: []string{"switch"}}}}},
		{ClientID: "c-2", Device: gwmodel.Device{Key: "dev2", Endpoints: []gwmodel.Endpoint{{Exposes: []string{"switch"}}}}},
	}
	req := ExecuteRequest{
		UserID:          "u-1",
		GoogleDeviceIDs: []string{"c-1/dev1"},
		Commands:        []traits.Command{{OnOff: &traits.CommandOnOff{On: true}}},
	}

	plans := MapExecutionRequest(req, all)
	require.Len(t, plans, 1)
	assert.Equal(t, "c-1", plans[0].ClientID)
	assert.Equal(t, "dev1", plans[0].DeviceKey)
	assert.Equal(t, traits.Message{"status": "on"}, plans[0].Message)
}

func TestMapExecutionRequestNeverTargetsUnknownDevice(t *testing.T) {
	all := []devicerepo.DeviceEntry{
		{ClientID: "c-1", Device: gwmodel.Device{Key: "dev1", Endpoints: []gwmodel.Endpoint{{Exposes: []string{"switch"}}}}},
	}
	req := ExecuteRequest{
		GoogleDeviceIDs: []string{"c-9/ghost"},
		Commands:        []traits.Command{{OnOff: &traits.CommandOnOff{On: true}}},
	}
	plans := MapExecutionRequest(req, all)
	assert.Empty(t, plans)
}

func TestMapExecutionRequestForwardsEndpointWhenSingleNonZero(t *testing.T) {
	all := []devicerepo.DeviceEntry{
		{ClientID: "c-1", Device: gwmodel.Device{
			Key:       "dev1",
			Endpoints: []gwmodel.Endpoint{{ID: 3, Exposes: []string{"switch"}}},
		}},
	}
	req := ExecuteRequest{
		GoogleDeviceIDs: []string{"c-1/dev1"},
		Commands:        []traits.Command{{OnOff: &traits.CommandOnOff{On: true}}},
	}
	plans := MapExecutionRequest(req, all)
	require.Len(t, plans, 1)
	require.NotNil(t, plans[0].EndpointID)
	assert.Equal(t, 3, *plans[0].EndpointID)
}

func TestMapExecutionRequestForwardsMatchedEndpointWhenSplit(t *testing.T) {
	all := []devicerepo.DeviceEntry{
		{ClientID: "c-1", Device: gwmodel.Device{
			Key: "dev1",
			Endpoints: []gwmodel.Endpoint{
				{ID: 1, Exposes: []string{"switch"}},
				{ID: 2, Exposes: []string{"switch"}},
			},
		}},
	}
	req := ExecuteRequest{
		GoogleDeviceIDs: []string{"c-1/dev1#2"},
		Commands:        []traits.Command{{OnOff: &traits.CommandOnOff{On: true}}},
	}

	plans := MapExecutionRequest(req, all)
	require.Len(t, plans, 1)
	require.NotNil(t, plans[0].EndpointID)
	assert.Equal(t, 2, *plans[0].EndpointID)
}
