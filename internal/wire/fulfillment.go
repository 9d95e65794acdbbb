package wire

import (
	"encoding/json"
	"fmt"

	"github.com/faltung/homed-google-bridge/internal/traits"
)

// FulfillmentRequest matches the request body documented at
// https://developers.google.com/assistant/smarthome/develop/process-intents
type FulfillmentRequest struct {
	RequestID string              `json:"requestId"`
	Inputs    []FulfillmentInput `json:"inputs"`
}

// FulfillmentInput is one `inputs[]` entry. Exactly one of Query/Execute
// is populated, depending on Intent; SYNC and DISCONNECT carry no payload.
type FulfillmentInput struct {
	Intent  string
	Query   *QueryPayload
	Execute *ExecutePayload
}

// UnmarshalJSON dispatches the payload by intent name, mirroring the
// teacher library's fulfillmentInput decoder.
func (i *FulfillmentInput) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Intent  string          `json:"intent"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	i.Intent = tmp.Intent
	switch tmp.Intent {
	case IntentQuery:
		payload := &QueryPayload{}
		if len(tmp.Payload) > 0 {
			if err := json.Unmarshal(tmp.Payload, payload); err != nil {
				return err
			}
		}
		i.Query = payload
	case IntentExecute:
		payload := &ExecutePayload{}
		if len(tmp.Payload) > 0 {
			if err := json.Unmarshal(tmp.Payload, payload); err != nil {
				return err
			}
		}
		i.Execute = payload
	}
	return nil
}

// Intent names recognized on FulfillmentInput.Intent.
const (
	IntentSync       = "action.devices.SYNC"
	IntentQuery      = "action.devices.QUERY"
	IntentExecute    = "action.devices.EXECUTE"
	IntentDisconnect = "action.devices.DISCONNECT"
)

// DeviceArg identifies a single device in a QUERY or EXECUTE request.
type DeviceArg struct {
	ID         string                 `json:"id"`
	CustomData map[string]interface{} `json:"customData,omitempty"`
}

// QueryPayload is the `inputs[].payload` body of a QUERY intent.
type QueryPayload struct {
	Devices []DeviceArg `json:"devices"`
}

// ExecutePayload is the `inputs[].payload` body of an EXECUTE intent.
type ExecutePayload struct {
	Commands []ExecuteCommandGroup `json:"commands"`
}

// ExecuteCommandGroup pairs a set of target devices with the commands to
// run against all of them.
type ExecuteCommandGroup struct {
	Devices   []DeviceArg      `json:"devices"`
	Execution []CommandPayload `json:"execution"`
}

// CommandPayload is one raw `execution[]` entry before it is decoded into
// a traits.Command.
type CommandPayload struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

// Decode translates the wire command name and params into a
// traits.Command, applying the spec's documented defaults (e.g.
// OpenClose's openPercent defaulting to 100 when omitted).
func (c CommandPayload) Decode() (traits.Command, error) {
	cmd := traits.Command{Name: c.Command}

	switch c.Command {
	case "action.devices.commands.OnOff":
		var p struct {
			On bool `json:"on"`
		}
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return cmd, err
		}
		cmd.OnOff = &traits.CommandOnOff{On: p.On}

	case "action.devices.commands.BrightnessAbsolute":
		var p struct {
			Brightness int `json:"brightness"`
		}
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return cmd, err
		}
		cmd.BrightnessAbsolute = &traits.CommandBrightnessAbsolute{Brightness: p.Brightness}

	case "action.devices.commands.ColorAbsolute":
		var p struct {
			Color struct {
				SpectrumRGB  *int     `json:"spectrumRGB"`
				TemperatureK *int     `json:"temperatureK"`
				SpectrumHSV  *struct {
					Hue        float64 `json:"hue"`
					Saturation float64 `json:"saturation"`
					Value      float64 `json:"value"`
				} `json:"spectrumHSV"`
			} `json:"color"`
		}
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return cmd, err
		}
		cv := traits.ColorValue{SpectrumRGB: p.Color.SpectrumRGB, TemperatureK: p.Color.TemperatureK}
		if p.Color.SpectrumHSV != nil {
			cv.SpectrumHSV = &traits.HSV{
				Hue:        p.Color.SpectrumHSV.Hue,
				Saturation: p.Color.SpectrumHSV.Saturation,
				Value:      p.Color.SpectrumHSV.Value,
			}
		}
		cmd.ColorAbsolute = &traits.CommandColorAbsolute{Color: cv}

	case "action.devices.commands.OpenClose":
		var p struct {
			OpenPercent *int `json:"openPercent"`
		}
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return cmd, err
		}
		percent := traits.DefaultOpenPercent
		if p.OpenPercent != nil {
			percent = *p.OpenPercent
		}
		cmd.OpenClose = &traits.CommandOpenClose{OpenPercent: percent}

	case "action.devices.commands.ThermostatTemperatureSetpoint":
		var p struct {
			Setpoint float64 `json:"thermostatTemperatureSetpoint"`
		}
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return cmd, err
		}
		cmd.ThermostatTemperatureSetpoint = &traits.CommandThermostatSetpoint{Setpoint: p.Setpoint}

	case "action.devices.commands.ThermostatSetMode":
		var p struct {
			Mode string `json:"thermostatMode"`
		}
		if err := json.Unmarshal(c.Params, &p); err != nil {
			return cmd, err
		}
		cmd.ThermostatSetMode = &traits.CommandThermostatSetMode{Mode: p.Mode}

	default:
		return cmd, fmt.Errorf("unsupported command %q", c.Command)
	}

	return cmd, nil
}

// SyncResponse is the SYNC intent's response envelope.
type SyncResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Payload   struct {
		AgentUserID string                   `json:"agentUserId,omitempty"`
		Devices     []map[string]interface{} `json:"devices,omitempty"`
	} `json:"payload"`
}

// QueryResponse is the QUERY intent's response envelope.
type QueryResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Payload   struct {
		Devices map[string]map[string]interface{} `json:"devices"`
	} `json:"payload"`
}

// ExecuteResponse is the EXECUTE intent's response envelope.
type ExecuteResponse struct {
	RequestID string                   `json:"requestId,omitempty"`
	Payload   struct {
		Commands []ExecuteCommandResult `json:"commands"`
	} `json:"payload"`
}

// ExecuteCommandResult reports the outcome of one planned command against
// the set of google device ids it targeted.
type ExecuteCommandResult struct {
	IDs       []string `json:"ids"`
	Status    string   `json:"status"`
	ErrorCode string   `json:"errorCode,omitempty"`
}

// DisconnectResponse is always the empty object.
type DisconnectResponse struct{}
