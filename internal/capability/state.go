package capability

import (
	"reflect"
	"strconv"

	"github.com/faltung/homed-google-bridge/internal/googlemodel"
	"github.com/faltung/homed-google-bridge/internal/gwmodel"
	"github.com/faltung/homed-google-bridge/internal/traits"
)

// mapProjectionState builds one projection's Google state fragment: an
// "online" field seeded from state.Available(), plus whatever each
// trait the projection's exposes/options infer contributes.
func mapProjectionState(p projectedEndpoint, state gwmodel.State) googlemodel.State {
	out := googlemodel.State{"online": state.Available()}
	for _, id := range inferTraits(p.exposes, p.options) {
		handler := traits.Registry[id]
		for k, v := range handler.State(state) {
			out[k] = v
		}
	}
	return out
}

// MapToGoogleState projects a single HomedDevice's current state into one
// Google state report, per spec.md §4.E. Use this only for devices that
// did not split (a single projection); split devices must go through
// MapToGoogleStates so each control endpoint gets its own per-endpoint
// state.
func MapToGoogleState(d gwmodel.Device, state gwmodel.State) googlemodel.State {
	projections := splitDevice(d)
	return mapProjectionState(projections[0], state)
}

// MapToGoogleStates projects every GoogleDeviceId a HomedDevice produces
// to its current Google state, per spec.md §4.E. When the device split,
// each control endpoint's state is read from state.Endpoints()[id] if
// present, falling back to the device-level state.
func MapToGoogleStates(d gwmodel.Device, clientID string, state gwmodel.State) map[string]googlemodel.State {
	projections := splitDevice(d)
	split := len(projections) > 1
	endpointStates := state.Endpoints()

	out := make(map[string]googlemodel.State, len(projections))
	for _, p := range projections {
		id := endpointIDIfSplit(split, p.endpointID)
		googleID := googlemodel.ToGoogleDeviceID(clientID, d.Key, id)

		epState := state
		if split && p.endpointID != nil {
			if s, ok := endpointStates[strconv.Itoa(*p.endpointID)]; ok {
				epState = s
			}
		}
		out[googleID] = mapProjectionState(p, epState)
	}
	return out
}

// GetStateUpdates returns only the GoogleDeviceId -> state entries whose
// projected state changed between prev and next under deep structural
// equality, per spec.md §4.E. Returns nil if the device exposes nothing
// or nothing changed.
func GetStateUpdates(d gwmodel.Device, clientID string, prev, next gwmodel.State) map[string]googlemodel.State {
	exposesAnything := false
	for _, ep := range d.Endpoints {
		if len(ep.Exposes) > 0 {
			exposesAnything = true
			break
		}
	}
	if !exposesAnything {
		return nil
	}

	prevStates := MapToGoogleStates(d, clientID, prev)
	nextStates := MapToGoogleStates(d, clientID, next)

	if len(nextStates) == 0 {
		return nil
	}

	var out map[string]googlemodel.State
	for id, nextState := range nextStates {
		prevState, existed := prevStates[id]
		if existed && deepEqual(prevState, nextState) {
			continue
		}
		if out == nil {
			out = make(map[string]googlemodel.State)
		}
		out[id] = nextState
	}
	return out
}

// deepEqual treats arrays as order-sensitive and objects as key-set-equal
// with recursively equal values, per spec.md §4.E.
func deepEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
