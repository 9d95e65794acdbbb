package traits

import "github.com/faltung/homed-google-bridge/internal/gwmodel"

type openCloseHandler struct{}

func (openCloseHandler) Supports(exposes []string, _ map[string]interface{}) bool {
	return hasAny(exposes, "cover", "blinds", "curtain", "shutter")
}

func (openCloseHandler) Attributes(_ []string, _ map[string]interface{}) map[string]interface{} {
	return nil
}

// State reads a numeric "position" clamped to [0,100], else maps a string
// "state" of "open"/"closed" to 100/0 and anything else to 50.
func (openCloseHandler) State(state gwmodel.State) map[string]interface{} {
	if v, ok := state["position"]; ok {
		if n, ok := asFloat(v); ok {
			return map[string]interface{}{"openPercent": clamp(round(n), 0, 100)}
		}
	}
	if v, ok := state["state"]; ok {
		if s, ok := v.(string); ok {
			switch s {
			case "open":
				return map[string]interface{}{"openPercent": 100}
			case "closed":
				return map[string]interface{}{"openPercent": 0}
			default:
				return map[string]interface{}{"openPercent": 50}
			}
		}
	}
	return nil
}

func (openCloseHandler) MapCommand(_ string, cmd Command, _ *int) Message {
	if cmd.OpenClose == nil {
		return nil
	}
	return Message{"position": clamp(cmd.OpenClose.OpenPercent, 0, 100)}
}
