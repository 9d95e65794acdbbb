// Package googlemodel defines the Google Smart Home projection of a
// gateway device: GoogleDevice, its identifier encoding, and the device
// state/command shapes exchanged with Google's fulfillment and Home
// Graph APIs. It mirrors the teacher library's flat Device/DeviceState
// shape, generalized to support the clientId/deviceKey/endpointId
// identifier scheme and multi-endpoint splitting this bridge requires.
package googlemodel

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceName contains the different ways of identifying a device to a user.
type DeviceName struct {
	DefaultNames []string `json:"defaultNames,omitempty"`
	Name         string   `json:"name,omitempty"`
	Nicknames    []string `json:"nicknames,omitempty"`
}

// DeviceInfo contains the physical properties of a device.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	HwVersion    string `json:"hwVersion,omitempty"`
	SwVersion    string `json:"swVersion,omitempty"`
}

// UnknownDeviceInfo fills in the fields spec.md §4.E requires when the
// gateway never reported them.
var UnknownDeviceInfo = DeviceInfo{
	Manufacturer: "Unknown Manufacturer",
	Model:        "Unknown Model",
	HwVersion:    "unknown",
	SwVersion:    "unknown",
}

// Device is the projection of one gateway device (or one of its control
// endpoints, if split) into Google's trait-based model.
type Device struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	Traits          []string               `json:"traits"`
	Name            DeviceName             `json:"name"`
	WillReportState bool                   `json:"willReportState"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
	DeviceInfo      DeviceInfo             `json:"deviceInfo"`
	CustomData      map[string]interface{} `json:"customData,omitempty"`
}

// State is a flattened bag of trait state fields reported for one
// GoogleDeviceId, e.g. {"online": true, "on": true, "brightness": 40}.
type State map[string]interface{}

// Clone returns a shallow copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ParsedID is the decomposition of a GoogleDeviceId string.
type ParsedID struct {
	ClientID    string
	DeviceKey   string
	EndpointID  int
	HasEndpoint bool
}

// ToGoogleDeviceID builds the string identifier "<clientId>/<deviceKey>",
// or "<clientId>/<deviceKey>#<endpointId>" when endpointID is supplied
// (non-nil), per spec.md §4.E. The endpoint suffix is only ever produced
// by callers that know the device was split; a single, unsplit device
// never gets a "#" segment even if its one endpoint has a non-zero ID.
func ToGoogleDeviceID(clientID, deviceKey string, endpointID *int) string {
	base := clientID + "/" + deviceKey
	if endpointID == nil {
		return base
	}
	return fmt.Sprintf("%s#%d", base, *endpointID)
}

// FromGoogleDeviceID is the inverse of ToGoogleDeviceID.
func FromGoogleDeviceID(id string) (ParsedID, error) {
	slash := strings.IndexByte(id, '/')
	if slash < 0 {
		return ParsedID{}, fmt.Errorf("googlemodel: device id %q has no clientId/deviceKey separator", id)
	}
	clientID := id[:slash]
	rest := id[slash+1:]
	if clientID == "" || rest == "" {
		return ParsedID{}, fmt.Errorf("googlemodel: device id %q has an empty clientId or deviceKey", id)
	}

	if hash := strings.IndexByte(rest, '#'); hash >= 0 {
		deviceKey := rest[:hash]
		epStr := rest[hash+1:]
		if deviceKey == "" || epStr == "" {
			return ParsedID{}, fmt.Errorf("googlemodel: device id %q has an empty deviceKey or endpointId", id)
		}
		ep, err := strconv.Atoi(epStr)
		if err != nil {
			return ParsedID{}, fmt.Errorf("googlemodel: device id %q has a non-numeric endpointId: %w", id, err)
		}
		return ParsedID{ClientID: clientID, DeviceKey: deviceKey, EndpointID: ep, HasEndpoint: true}, nil
	}

	return ParsedID{ClientID: clientID, DeviceKey: rest}, nil
}
