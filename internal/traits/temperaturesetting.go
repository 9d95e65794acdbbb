package traits

import "github.com/faltung/homed-google-bridge/internal/gwmodel"

type temperatureSettingHandler struct{}

func (temperatureSettingHandler) Supports(exposes []string, _ map[string]interface{}) bool {
	return hasAny(exposes, "thermostat", "temperature_controller")
}

var validThermostatModes = map[string]bool{
	"off": true, "heat": true, "cool": true, "auto": true,
	"drying": true, "eco": true, "heatCool": true,
}

var defaultThermostatModes = []string{"heat", "cool", "off"}

// Attributes always reports a CELSIUS unit. Without a thermostat or
// temperature_controller expose the setting is query-only and the only
// mode is "off". Otherwise the modes come from the "modes" option,
// filtered to the valid mode set, and default to heat, cool and off when
// none of them is valid or the option is absent.
func (temperatureSettingHandler) Attributes(exposes []string, options map[string]interface{}) map[string]interface{} {
	attrs := map[string]interface{}{
		"thermostatTemperatureUnit": "CELSIUS",
	}

	if !hasAny(exposes, "thermostat", "temperature_controller") {
		attrs["queryOnlyTemperatureSetting"] = true
		attrs["availableThermostatModes"] = []string{"off"}
		return attrs
	}

	modes := optionList(options, "modes")
	var filtered []string
	for _, m := range modes {
		if validThermostatModes[m] {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		filtered = defaultThermostatModes
	}
	attrs["availableThermostatModes"] = filtered

	return attrs
}

// State reports ambient temperature/humidity, setpoint, and mode (when
// valid) as separate fields.
func (temperatureSettingHandler) State(state gwmodel.State) map[string]interface{} {
	out := map[string]interface{}{}
	if v, ok := state["temperature"]; ok {
		if n, ok := asFloat(v); ok {
			out["thermostatTemperatureAmbient"] = n
		}
	}
	if v, ok := state["humidity"]; ok {
		if n, ok := asFloat(v); ok {
			out["thermostatHumidityAmbient"] = n
		}
	}
	if v, ok := state["setpoint"]; ok {
		if n, ok := asFloat(v); ok {
			out["thermostatTemperatureSetpoint"] = n
		}
	}
	if v, ok := state["mode"]; ok {
		if s, ok := v.(string); ok && validThermostatModes[s] {
			out["thermostatMode"] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (temperatureSettingHandler) MapCommand(_ string, cmd Command, _ *int) Message {
	if cmd.ThermostatTemperatureSetpoint != nil {
		return Message{"setpoint": cmd.ThermostatTemperatureSetpoint.Setpoint}
	}
	if cmd.ThermostatSetMode != nil {
		return Message{"mode": cmd.ThermostatSetMode.Mode}
	}
	return nil
}
