// Package gwmodel defines the gateway-facing device model: the devices,
// endpoints and state reports a client gateway publishes, before any
// projection into Google's trait model.
package gwmodel

// State is a device or endpoint's last observed state: an open bag of
// string keys to arbitrary JSON values, with an optional nested
// per-endpoint breakdown. "available" is reserved for online status.
type State map[string]interface{}

// Endpoints returns the nested per-endpoint state map, if any was
// reported. Returns nil if state has no per-endpoint breakdown.
func (s State) Endpoints() map[string]State {
	raw, ok := s["endpoints"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case map[string]State:
		return v
	case map[string]interface{}:
		out := make(map[string]State, len(v))
		for k, val := range v {
			if m, ok := val.(map[string]interface{}); ok {
				out[k] = State(m)
			}
		}
		return out
	default:
		return nil
	}
}

// Available reports the device-level online flag, defaulting to true
// when absent (per spec.md §4.E "online = state.available ?? true").
func (s State) Available() bool {
	raw, ok := s["available"]
	if !ok {
		return true
	}
	b, ok := raw.(bool)
	if !ok {
		return true
	}
	return b
}

// Clone returns a shallow copy of s, safe to hand to a caller without
// sharing the repository's own map.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Endpoint is one physical sub-function of a device: a non-negative ID
// (0 or absent means "the only endpoint"), a set of semantic exposes, and
// an optional keyed option bag.
type Endpoint struct {
	ID      int
	Exposes []string
	Options map[string]interface{}
}

// HasExpose reports whether e declares the given expose tag.
func (e Endpoint) HasExpose(expose string) bool {
	for _, x := range e.Exposes {
		if x == expose {
			return true
		}
	}
	return false
}

// OptionList returns the option value at key as a []string, if present
// and shaped that way. Several option keys (e.g. "light") are declared as
// string lists in spec.md §6.
func (e Endpoint) OptionList(key string) []string {
	raw, ok := e.Options[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// OptionString returns the option at key as a string, and whether it was
// present and string-typed.
func (e Endpoint) OptionString(key string) (string, bool) {
	raw, ok := e.Options[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// Device is a logical device reported by a gateway. Key is unique within
// that gateway's connection.
type Device struct {
	Key          string
	Name         string
	Description  string
	Manufacturer string
	Model        string
	Version      string
	Firmware     string
	Endpoints    []Endpoint
	Available    *bool
}

// IsAvailable reports the device's online flag, defaulting to true when
// unset.
func (d Device) IsAvailable() bool {
	if d.Available == nil {
		return true
	}
	return *d.Available
}

// Endpoint looks up an endpoint by ID. ID 0 matches both an explicit
// endpoint with ID 0 and the implicit "only endpoint" case when exactly
// one endpoint exists and it has no other ID.
func (d Device) Endpoint(id int) (Endpoint, bool) {
	for _, ep := range d.Endpoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// ControlVocabulary lists the exposes that mark an endpoint as having
// control capability, per spec.md §4.E.
var ControlVocabulary = map[string]bool{
	"switch": true, "relay": true, "outlet": true,
	"light": true, "dimmable_light": true, "color_light": true,
	"brightness": true, "color": true,
	"cover": true, "blinds": true, "curtain": true, "shutter": true,
	"lock": true, "door_lock": true,
	"thermostat": true, "temperature_controller": true,
}

// IsControlEndpoint reports whether ep declares at least one expose from
// ControlVocabulary.
func IsControlEndpoint(ep Endpoint) bool {
	for _, x := range ep.Exposes {
		if ControlVocabulary[x] {
			return true
		}
	}
	return false
}
