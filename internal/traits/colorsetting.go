package traits

import (
	"strconv"
	"strings"

	"github.com/faltung/homed-google-bridge/internal/gwmodel"
)

type colorSettingHandler struct{}

func (colorSettingHandler) Supports(exposes []string, options map[string]interface{}) bool {
	if hasAny(exposes, "color_light", "color") {
		return true
	}
	if !hasAny(exposes, "light") {
		return false
	}
	return optionListContains(options, "light", "color") || optionListContains(options, "light", "colorTemperature")
}

// Attributes reports colorModel: "rgb", promoted to "hsv" when the
// endpoint also exposes color_temperature or declares a colorTemperature
// option, per spec.md §4.F.
func (colorSettingHandler) Attributes(exposes []string, options map[string]interface{}) map[string]interface{} {
	model := "rgb"
	if hasAny(exposes, "color_temperature") {
		model = "hsv"
	} else if _, ok := options["colorTemperature"]; ok {
		model = "hsv"
	}
	return map[string]interface{}{"colorModel": model}
}

// State passes through an already-structured color object, converts a hex
// string to a packed spectrumRgb value, and separately reports a
// colorTemperature reading as a temperatureK color field.
func (colorSettingHandler) State(state gwmodel.State) map[string]interface{} {
	var out map[string]interface{}

	if raw, ok := state["color"]; ok {
		switch c := raw.(type) {
		case map[string]interface{}:
			if _, hasR := c["r"]; hasR {
				out = map[string]interface{}{"color": c}
			} else if _, hasX := c["x"]; hasX {
				out = map[string]interface{}{"color": c}
			}
		case string:
			if rgb, ok := hexToSpectrumRGB(c); ok {
				out = map[string]interface{}{"color": map[string]interface{}{"spectrumRgb": rgb}}
			}
		}
	}

	if raw, ok := state["colorTemperature"]; ok {
		if n, ok := asFloat(raw); ok {
			if out == nil {
				out = map[string]interface{}{}
			}
			out["color"] = map[string]interface{}{"temperatureK": round(n)}
		}
	}

	return out
}

func hexToSpectrumRGB(hex string) (int, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, false
	}
	n, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func (colorSettingHandler) MapCommand(_ string, cmd Command, _ *int) Message {
	if cmd.ColorAbsolute == nil {
		return nil
	}
	cv := cmd.ColorAbsolute.Color

	if cv.SpectrumRGB != nil {
		rgb := *cv.SpectrumRGB
		return Message{"color": map[string]interface{}{
			"r": (rgb >> 16) & 0xff,
			"g": (rgb >> 8) & 0xff,
			"b": rgb & 0xff,
		}}
	}
	if cv.SpectrumHSV != nil {
		return Message{"color": map[string]interface{}{
			"hue":        cv.SpectrumHSV.Hue,
			"saturation": cv.SpectrumHSV.Saturation,
			"value":      cv.SpectrumHSV.Value,
		}}
	}
	if cv.TemperatureK != nil {
		return Message{"colorTemperature": *cv.TemperatureK}
	}
	return nil
}
