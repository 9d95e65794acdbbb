package traits

import "github.com/faltung/homed-google-bridge/internal/gwmodel"

type onOffHandler struct{}

func (onOffHandler) Supports(exposes []string, _ map[string]interface{}) bool {
	return hasAny(exposes, "switch", "relay", "outlet", "lock", "light", "dimmable_light", "color_light")
}

func (onOffHandler) Attributes(_ []string, _ map[string]interface{}) map[string]interface{} {
	return nil
}

// State reads "on", else "status", else "state" (each accepting an "on"
// string or a truthy value), else a truthy "power" field.
func (onOffHandler) State(state gwmodel.State) map[string]interface{} {
	if v, ok := state["on"]; ok {
		return map[string]interface{}{"on": asBool(v)}
	}
	if v, ok := state["status"]; ok {
		return map[string]interface{}{"on": asBool(v)}
	}
	if v, ok := state["state"]; ok {
		return map[string]interface{}{"on": asBool(v)}
	}
	if v, ok := state["power"]; ok {
		return map[string]interface{}{"on": truthy(v)}
	}
	return nil
}

func (onOffHandler) MapCommand(_ string, cmd Command, _ *int) Message {
	if cmd.OnOff == nil {
		return nil
	}
	status := "off"
	if cmd.OnOff.On {
		status = "on"
	}
	return Message{"status": status}
}
