package capability

import (
	"fmt"

	"github.com/faltung/homed-google-bridge/internal/googlemodel"
	"github.com/faltung/homed-google-bridge/internal/gwmodel"
	"github.com/faltung/homed-google-bridge/internal/traits"
)

// MapToGoogleDevices projects one HomedDevice, reported by clientId, into
// one or more GoogleDevices, per spec.md §4.E.
func MapToGoogleDevices(d gwmodel.Device, clientID string) []googlemodel.Device {
	projections := splitDevice(d)
	split := len(projections) > 1

	out := make([]googlemodel.Device, 0, len(projections))
	for _, p := range projections {
		out = append(out, assembleGoogleDevice(d, clientID, p, split))
	}
	return out
}

func assembleGoogleDevice(d gwmodel.Device, clientID string, p projectedEndpoint, split bool) googlemodel.Device {
	traitIDs := inferTraits(p.exposes, p.options)

	attributes := map[string]interface{}{}
	for _, id := range traitIDs {
		handler := traits.Registry[id]
		for k, v := range handler.Attributes(p.exposes, p.options) {
			attributes[k] = v
		}
	}
	if len(attributes) == 0 {
		attributes = nil
	}

	wireTraits := make([]string, 0, len(traitIDs))
	for _, id := range traitIDs {
		wireTraits = append(wireTraits, traitWireName[id])
	}

	suffix := ""
	if split && p.endpointID != nil {
		suffix = fmt.Sprintf(" - Switch %d", *p.endpointID)
	}

	friendlyName := d.Name
	if friendlyName == "" {
		friendlyName = d.Key
	}

	var nicknames []string
	if d.Description != "" {
		nicknames = append(nicknames, d.Description)
	}
	if manufacturerModel := joinNonEmpty(d.Manufacturer, d.Model); manufacturerModel != "" {
		nicknames = append(nicknames, manufacturerModel)
	}

	info := googlemodel.UnknownDeviceInfo
	if d.Manufacturer != "" {
		info.Manufacturer = d.Manufacturer
	}
	if d.Model != "" {
		info.Model = d.Model
	}
	if d.Firmware != "" {
		info.HwVersion = d.Firmware
	}
	if d.Version != "" {
		info.SwVersion = d.Version
	}

	return googlemodel.Device{
		ID:   googlemodel.ToGoogleDeviceID(clientID, d.Key, endpointIDIfSplit(split, p.endpointID)),
		Type: detectDeviceType(p.exposes),
		Name: googlemodel.DeviceName{
			DefaultNames: []string{friendlyName + suffix},
			Name:         friendlyName + suffix,
			Nicknames:    nicknames,
		},
		Traits:          wireTraits,
		WillReportState: true,
		Attributes:      attributes,
		DeviceInfo:      info,
	}
}

func endpointIDIfSplit(split bool, id *int) *int {
	if !split {
		return nil
	}
	return id
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "" && b == "":
		return ""
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
