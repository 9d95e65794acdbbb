// Package traits implements the per-trait attribute/state/command logic
// for the Google Smart Home traits this bridge supports: OnOff,
// Brightness, ColorSetting, OpenClose, TemperatureSetting and
// SensorState. Handlers are registered in a fixed table keyed by trait
// ID, per the trait-registry redesign in spec.md §9, generalizing the
// teacher library's ad hoc Add*Trait builder methods.
package traits

import (
	"math"

	"github.com/faltung/homed-google-bridge/internal/gwmodel"
)

// Trait IDs, matching Google's "action.devices.traits.*" vocabulary.
const (
	OnOff              = "OnOff"
	Brightness         = "Brightness"
	ColorSetting       = "ColorSetting"
	OpenClose          = "OpenClose"
	TemperatureSetting = "TemperatureSetting"
	SensorState        = "SensorState"
)

// Command is a single decoded Google Smart Home EXECUTE command. Exactly
// one field is non-nil, per spec.md §9's tagged-union redesign.
type Command struct {
	Name string

	OnOff                         *CommandOnOff
	BrightnessAbsolute            *CommandBrightnessAbsolute
	ColorAbsolute                 *CommandColorAbsolute
	OpenClose                     *CommandOpenClose
	ThermostatTemperatureSetpoint *CommandThermostatSetpoint
	ThermostatSetMode             *CommandThermostatSetMode
}

// CommandOnOff requests the device be turned on or off.
type CommandOnOff struct {
	On bool
}

// CommandBrightnessAbsolute requests an absolute brightness level in [0,100].
type CommandBrightnessAbsolute struct {
	Brightness int
}

// ColorValue is the sum type of the three ways a color can be specified.
type ColorValue struct {
	SpectrumRGB  *int
	SpectrumHSV  *HSV
	TemperatureK *int
}

// HSV is a hue/saturation/value color triple.
type HSV struct {
	Hue        float64
	Saturation float64
	Value      float64
}

// CommandColorAbsolute requests an absolute color change.
type CommandColorAbsolute struct {
	Color ColorValue
}

// CommandOpenClose requests an absolute open percentage in [0,100].
// OpenPercent defaults to 100 at decode time if the field was omitted.
type CommandOpenClose struct {
	OpenPercent int
}

// DefaultOpenPercent is applied by the wire decoder when openPercent is
// omitted from an OpenClose command, per spec.md §6.
const DefaultOpenPercent = 100

// CommandThermostatSetpoint requests a target temperature.
type CommandThermostatSetpoint struct {
	Setpoint float64
}

// CommandThermostatSetMode requests a thermostat mode change.
type CommandThermostatSetMode struct {
	Mode string
}

// Message is the homed-gateway-facing command payload a Handler produces:
// an opaque set of fields merged into the `fd/<device>`-style command
// message sent down to the gateway.
type Message map[string]interface{}

// Handler implements the four uniform operations spec.md §4.F requires of
// every trait.
type Handler interface {
	// Supports reports whether a control endpoint with this expose/option
	// set contributes this trait.
	Supports(exposes []string, options map[string]interface{}) bool
	// Attributes returns the trait's static Google-facing attributes, or
	// nil if there is nothing to report.
	Attributes(exposes []string, options map[string]interface{}) map[string]interface{}
	// State extracts this trait's contribution to a Google state report
	// from a homed device state snapshot, or nil if the trait has nothing
	// to say about this state.
	State(state gwmodel.State) map[string]interface{}
	// MapCommand translates a Command into a homed gateway message, or
	// nil if this handler does not handle the command.
	MapCommand(deviceKey string, cmd Command, endpointID *int) Message
}

// Registry is the fixed, immutable trait-id -> Handler table.
var Registry = map[string]Handler{
	OnOff:              onOffHandler{},
	Brightness:         brightnessHandler{},
	ColorSetting:       colorSettingHandler{},
	OpenClose:          openCloseHandler{},
	TemperatureSetting: temperatureSettingHandler{},
	SensorState:        sensorStateHandler{},
}

func hasAny(exposes []string, wanted ...string) bool {
	for _, e := range exposes {
		for _, w := range wanted {
			if e == w {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "on"
	default:
		return false
	}
}

func truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

func round(f float64) int {
	return int(math.Round(f))
}

// optionList reads a string-list option value, e.g. options["light"] ==
// ["level","color"], tolerating both []string and []interface{} (the
// shape produced by generic JSON decoding).
func optionList(options map[string]interface{}, key string) []string {
	raw, ok := options[key]
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

func optionListContains(options map[string]interface{}, key, want string) bool {
	for _, v := range optionList(options, key) {
		if v == want {
			return true
		}
	}
	return false
}

// powerMonitoringExposes are the exposes whose presence overrides
// light+level from contributing a Brightness trait (spec.md §9 open
// question: this override is explicit and authoritative).
var powerMonitoringExposes = map[string]bool{
	"power": true, "energy": true, "voltage": true, "current": true,
}

func hasPowerMonitoringExpose(exposes []string) bool {
	for _, e := range exposes {
		if powerMonitoringExposes[e] {
			return true
		}
	}
	return false
}
