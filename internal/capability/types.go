// Package capability is the pure, stateless semantic bridge between the
// gateway-facing device model (gwmodel) and Google's device/trait/state/
// command model (googlemodel), per spec.md §4.E. It holds no state of its
// own; every function is a pure transformation consumed by the
// fulfillment router.
package capability

import "github.com/faltung/homed-google-bridge/internal/traits"

// primaryExposePriority is the ordered list used to decide a control
// endpoint's primary expose, and therefore whether a multi-endpoint
// device splits into multiple GoogleDevices.
var primaryExposePriority = []string{
	"color_light", "dimmable_light", "light",
	"outlet", "relay", "switch",
	"blinds", "curtain", "shutter", "cover",
	"door_lock", "lock",
	"thermostat", "temperature_controller",
}

// genericSensorExposes are the exposes that mark an endpoint as a
// SENSOR-type device (after the smoke special case), per spec.md §4.E.
var genericSensorExposes = map[string]bool{
	"temperature": true, "humidity": true, "pressure": true,
	"co2": true, "pm10": true, "pm25": true, "co": true, "no2": true,
	"contact": true, "occupancy": true, "motion": true,
	"water_leak": true, "gas": true,
}

// Google Smart Home device type strings.
const (
	TypeSmokeDetector = "action.devices.types.SMOKE_DETECTOR"
	TypeSensor        = "action.devices.types.SENSOR"
	TypeOutlet        = "action.devices.types.OUTLET"
	TypeLight         = "action.devices.types.LIGHT"
	TypeLock          = "action.devices.types.LOCK"
	TypeThermostat    = "action.devices.types.THERMOSTAT"
	TypeBlinds        = "action.devices.types.BLINDS"
	TypeSwitch        = "action.devices.types.SWITCH"
)

// traitWireName maps a traits package trait ID to the wire-format string
// Google expects in a GoogleDevice's traits array.
var traitWireName = map[string]string{
	traits.OnOff:              "action.devices.traits.OnOff",
	traits.Brightness:         "action.devices.traits.Brightness",
	traits.ColorSetting:       "action.devices.traits.ColorSetting",
	traits.OpenClose:          "action.devices.traits.OpenClose",
	traits.TemperatureSetting: "action.devices.traits.TemperatureSetting",
	traits.SensorState:        "action.devices.traits.SensorState",
}

func primaryExpose(exposes []string) (string, bool) {
	for _, candidate := range primaryExposePriority {
		for _, e := range exposes {
			if e == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}

// detectDeviceType applies spec.md §4.E's priority order to a merged
// expose set.
func detectDeviceType(exposes []string) string {
	has := func(wanted ...string) bool {
		for _, e := range exposes {
			for _, w := range wanted {
				if e == w {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("smoke"):
		return TypeSmokeDetector
	case hasAnyGenericSensor(exposes):
		return TypeSensor
	case has("outlet"):
		return TypeOutlet
	case has("light", "color_light", "dimmable_light"):
		return TypeLight
	case has("lock", "door_lock"):
		return TypeLock
	case has("thermostat", "temperature_controller"):
		return TypeThermostat
	case has("cover", "blinds", "curtain", "shutter"):
		return TypeBlinds
	case has("switch", "relay"):
		return TypeSwitch
	default:
		return TypeSensor
	}
}

func hasAnyGenericSensor(exposes []string) bool {
	for _, e := range exposes {
		if genericSensorExposes[e] {
			return true
		}
	}
	return false
}

// inferTraits accumulates the trait set a given (exposes, options) pair
// contributes, by delegating to each registered handler's Supports.
func inferTraits(exposes []string, options map[string]interface{}) []string {
	var out []string
	seen := map[string]bool{}
	// Iterate trait IDs in a fixed order so the resulting slice is
	// deterministic regardless of map iteration order.
	for _, id := range []string{
		traits.OnOff, traits.Brightness, traits.ColorSetting,
		traits.OpenClose, traits.TemperatureSetting, traits.SensorState,
	} {
		handler, ok := traits.Registry[id]
		if !ok || seen[id] {
			continue
		}
		if handler.Supports(exposes, options) {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}
