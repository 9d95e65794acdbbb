package googlemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGoogleDeviceIDWithoutEndpoint(t *testing.T) {
	assert.Equal(t, "c-1/dev1", ToGoogleDeviceID("c-1", "dev1", nil))
}

func TestToGoogleDeviceIDWithEndpoint(t *testing.T) {
	ep := 2
	assert.Equal(t, "c-1/dev1#2", ToGoogleDeviceID("c-1", "dev1", &ep))
}

func TestFromGoogleDeviceIDRoundTripsWithoutEndpoint(t *testing.T) {
	parsed, err := FromGoogleDeviceID("c-1/dev1")
	require.NoError(t, err)
	assert.Equal(t, ParsedID{ClientID: "c-1", DeviceKey: "dev1"}, parsed)
}

func TestFromGoogleDeviceIDRoundTripsWithEndpoint(t *testing.T) {
	parsed, err := FromGoogleDeviceID("c-1/dev1#2")
	require.NoError(t, err)
	assert.Equal(t, ParsedID{ClientID: "c-1", DeviceKey: "dev1", EndpointID: 2, HasEndpoint: true}, parsed)
}

func TestFromGoogleDeviceIDRejectsMissingSeparator(t *testing.T) {
	_, err := FromGoogleDeviceID("dev1")
	assert.Error(t, err)
}

func TestFromGoogleDeviceIDRejectsEmptySegments(t *testing.T) {
	_, err := FromGoogleDeviceID("/dev1")
	assert.Error(t, err)

	_, err = FromGoogleDeviceID("c-1/")
	assert.Error(t, err)

	_, err = FromGoogleDeviceID("c-1/dev1#")
	assert.Error(t, err)
}

func TestFromGoogleDeviceIDRejectsNonNumericEndpoint(t *testing.T) {
	_, err := FromGoogleDeviceID("c-1/dev1#abc")
	assert.Error(t, err)
}

func TestStateCloneIsIndependentCopy(t *testing.T) {
	s := State{"on": true}
	clone := s.Clone()
	clone["on"] = false
	assert.Equal(t, true, s["on"])
}
