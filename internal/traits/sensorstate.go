package traits

import "github.com/faltung/homed-google-bridge/internal/gwmodel"

type sensorStateHandler struct{}

// numericSensorUnits maps a homed sensor expose to the unit Google expects
// it reported in, per spec.md §4.F.
var numericSensorUnits = map[string]string{
	"temperature": "C",
	"humidity":    "PERCENT",
	"pressure":    "PASCAL",
	"co2":         "PARTS_PER_MILLION",
	"pm25":        "MICROGRAMS_PER_CUBIC_METER",
	"pm10":        "MICROGRAMS_PER_CUBIC_METER",
	"co":          "PARTS_PER_MILLION",
	"no2":         "PARTS_PER_MILLION",
}

var categoricalSensorExposes = map[string]bool{
	"occupancy": true, "motion": true, "contact": true, "smoke": true, "water_leak": true, "gas": true,
}

func (sensorStateHandler) Supports(exposes []string, _ map[string]interface{}) bool {
	for _, e := range exposes {
		if _, ok := numericSensorUnits[e]; ok {
			return true
		}
		if categoricalSensorExposes[e] {
			return true
		}
	}
	return false
}

func (sensorStateHandler) Attributes(exposes []string, _ map[string]interface{}) map[string]interface{} {
	var supported []map[string]interface{}
	for _, e := range exposes {
		unit, ok := numericSensorUnits[e]
		if !ok {
			continue
		}
		supported = append(supported, map[string]interface{}{
			"name":                e,
			"numericCapabilities": map[string]interface{}{"rawValueUnit": unit},
		})
	}
	if len(supported) == 0 {
		return nil
	}
	return map[string]interface{}{"sensorStatesSupported": supported}
}

// State reports categorical sensor fields directly and collects any
// numeric sensor readings into currentSensorStateData.
func (sensorStateHandler) State(state gwmodel.State) map[string]interface{} {
	out := map[string]interface{}{}

	if v, ok := firstTruthyPresence(state, "occupancy", "motion"); ok {
		out["occupancy"] = boolToState(v, "OCCUPIED", "UNOCCUPIED")
	}
	if v, ok := state["contact"]; ok {
		out["openclose"] = boolToState(truthy(v), "CLOSED", "OPEN")
	}
	if v, ok := state["smoke"]; ok {
		out["smoke"] = boolToState(truthy(v), "SMOKE", "NO_SMOKE")
	}
	if v, ok := state["water_leak"]; ok {
		out["waterleak"] = boolToState(truthy(v), "LEAK", "NO_LEAK")
	}
	if v, ok := state["gas"]; ok {
		out["gas"] = boolToState(truthy(v), "HIGH", "NORMAL")
	}

	var readings []map[string]interface{}
	for name := range numericSensorUnits {
		v, ok := state[name]
		if !ok {
			continue
		}
		n, ok := asFloat(v)
		if !ok {
			continue
		}
		readings = append(readings, map[string]interface{}{"name": name, "rawValue": n})
	}
	if len(readings) > 0 {
		out["currentSensorStateData"] = readings
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func (sensorStateHandler) MapCommand(_ string, _ Command, _ *int) Message {
	return nil
}

func firstTruthyPresence(state gwmodel.State, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := state[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func boolToState(v interface{}, whenTrue, whenFalse string) string {
	t, ok := v.(bool)
	if !ok {
		t = truthy(v)
	}
	if t {
		return whenTrue
	}
	return whenFalse
}
