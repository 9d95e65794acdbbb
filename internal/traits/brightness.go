package traits

import "github.com/faltung/homed-google-bridge/internal/gwmodel"

type brightnessHandler struct{}

func (brightnessHandler) Supports(exposes []string, options map[string]interface{}) bool {
	if hasAny(exposes, "dimmable_light", "color_light", "brightness") {
		return true
	}
	if !hasAny(exposes, "light") {
		return false
	}
	return optionListContains(options, "light", "level") && !hasPowerMonitoringExpose(exposes)
}

func (brightnessHandler) Attributes(_ []string, _ map[string]interface{}) map[string]interface{} {
	return nil
}

// State reads "brightness" directly in [0,100], else normalizes "level"
// from [0,255] to [0,100].
func (brightnessHandler) State(state gwmodel.State) map[string]interface{} {
	if v, ok := state["brightness"]; ok {
		if n, ok := asFloat(v); ok {
			return map[string]interface{}{"brightness": clamp(round(n), 0, 100)}
		}
	}
	if v, ok := state["level"]; ok {
		if n, ok := asFloat(v); ok {
			return map[string]interface{}{"brightness": clamp(round(n*100/255), 0, 100)}
		}
	}
	return nil
}

func (brightnessHandler) MapCommand(_ string, cmd Command, _ *int) Message {
	if cmd.BrightnessAbsolute == nil {
		return nil
	}
	b := clamp(cmd.BrightnessAbsolute.Brightness, 0, 100)
	return Message{"level": round(float64(b) * 255 / 100)}
}
