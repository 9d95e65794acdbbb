package capability

import (
	"github.com/faltung/homed-google-bridge/internal/devicerepo"
	"github.com/faltung/homed-google-bridge/internal/googlemodel"
	"github.com/faltung/homed-google-bridge/internal/gwmodel"
	"github.com/faltung/homed-google-bridge/internal/traits"
)

// MapToHomedCommand finds the first registered trait in traitIDs whose
// handler translates cmd into a non-empty gateway message, per spec.md
// §4.E. endpointID is forwarded to the handler only when provided by the
// caller (callers apply the "exactly one endpoint with id>0" rule before
// calling this).
func MapToHomedCommand(deviceKey string, traitIDs []string, cmd traits.Command, endpointID *int) (traits.Message, bool) {
	for _, id := range traitIDs {
		handler, ok := traits.Registry[id]
		if !ok {
			continue
		}
		msg := handler.MapCommand(deviceKey, cmd, endpointID)
		if len(msg) > 0 {
			return msg, true
		}
	}
	return nil, false
}

// ExecuteRequest is the router's parsed EXECUTE ask for one
// (devices, execution) group.
type ExecuteRequest struct {
	UserID          string
	GoogleDeviceIDs []string
	Commands        []traits.Command
}

// CommandToSend is one fully-planned gateway-bound command, ready for the
// router to dispatch through devicerepo.ExecuteCommand.
type CommandToSend struct {
	UserID          string
	ClientID        string
	DeviceKey       string
	EndpointID      *int
	GoogleDeviceIDs []string
	Message         traits.Message
}

// MapExecutionRequest plans the set of gateway commands an EXECUTE
// request translates to, against the caller's known devices, per spec.md
// §4.E. It never emits a CommandToSend whose device is absent from
// allDevices for the targeted clientId.
func MapExecutionRequest(req ExecuteRequest, allDevices []devicerepo.DeviceEntry) []CommandToSend {
	wanted := make(map[string]bool, len(req.GoogleDeviceIDs))
	for _, id := range req.GoogleDeviceIDs {
		wanted[id] = true
	}

	var out []CommandToSend
	for _, entry := range allDevices {
		projections := splitDevice(entry.Device)
		split := len(projections) > 1

		for _, p := range projections {
			id := endpointIDIfSplit(split, p.endpointID)
			googleID := googlemodel.ToGoogleDeviceID(entry.ClientID, entry.Device.Key, id)
			if !wanted[googleID] {
				continue
			}

			traitIDs := inferTraits(p.exposes, p.options)
			forwardEndpoint := forwardableEndpointID(split, p.endpointID, entry.Device)

			for _, cmd := range req.Commands {
				msg, ok := MapToHomedCommand(entry.Device.Key, traitIDs, cmd, forwardEndpoint)
				if !ok {
					continue
				}
				out = append(out, CommandToSend{
					UserID:          req.UserID,
					ClientID:        entry.ClientID,
					DeviceKey:       entry.Device.Key,
					EndpointID:      forwardEndpoint,
					GoogleDeviceIDs: []string{googleID},
					Message:         msg,
				})
			}
		}
	}
	return out
}

// forwardableEndpointID implements spec.md §4.E's command-translation
// forwarding rule: when the device split, the matched projection's
// endpoint id is forwarded (p.endpointID is the single endpoint this
// projection was filtered down to); otherwise the whole, unfiltered
// device's endpoint list is consulted, and the id is forwarded only when
// the device has exactly one endpoint and that endpoint's id is greater
// than zero.
func forwardableEndpointID(split bool, id *int, d gwmodel.Device) *int {
	if split {
		if id != nil && *id > 0 {
			return id
		}
		return nil
	}
	return singleNonZeroEndpoint(d)
}

// singleNonZeroEndpoint returns the device's endpoint id, but only when
// the device has exactly one endpoint and that endpoint's id is greater
// than zero; otherwise nil.
func singleNonZeroEndpoint(d gwmodel.Device) *int {
	if len(d.Endpoints) != 1 {
		return nil
	}
	id := d.Endpoints[0].ID
	if id <= 0 {
		return nil
	}
	return &id
}
