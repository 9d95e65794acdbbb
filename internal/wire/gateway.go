// Package wire defines the JSON envelopes exchanged with client gateways
// and with the Google Smart Home fulfillment endpoint, and the decoders
// that turn them into the internal command and device models.
package wire

import (
	"bytes"
	"encoding/json"
)

// AuthMessage is the first encrypted packet a gateway sends, before any
// topic is established. Both fields are required and the schema is
// strict: unrecognized fields or missing ones fail decode, per spec.md
// §9's resolution of the AWAITING_AUTH schema ambiguity.
type AuthMessage struct {
	UniqueID string `json:"uniqueId"`
	Token    string `json:"token"`
}

// UnmarshalJSON rejects a message missing either required field, rather
// than leaving it zero-valued, or carrying any other field, so that
// callers can treat any successfully-decoded AuthMessage as already
// schema-valid.
func (a *AuthMessage) UnmarshalJSON(data []byte) error {
	type alias AuthMessage
	var tmp struct {
		alias
		UniqueIDRaw *string `json:"uniqueId"`
		TokenRaw    *string `json:"token"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tmp); err != nil {
		return err
	}
	if tmp.UniqueIDRaw == nil || tmp.TokenRaw == nil {
		return errMissingAuthField
	}
	a.UniqueID = *tmp.UniqueIDRaw
	a.Token = *tmp.TokenRaw
	return nil
}

var errMissingAuthField = &schemaError{"auth message requires uniqueId and token"}

type schemaError struct{ msg string }

func (e *schemaError) Error() string { return e.msg }

// ClientMessage is an authorized-state inbound message: a topic-addressed
// payload. Topic prefixes route to the typed payloads below.
type ClientMessage struct {
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// ServerMessage is the envelope for outbound subscribe/publish frames.
type ServerMessage struct {
	Action  string      `json:"action"`
	Topic   string      `json:"topic"`
	Message interface{} `json:"message,omitempty"`
}

// NewSubscribe builds the `{action: "subscribe", topic}` outbound frame.
func NewSubscribe(topic string) ServerMessage {
	return ServerMessage{Action: "subscribe", Topic: topic}
}

// NewPublish builds the `{action: "publish", topic, message}` outbound frame.
func NewPublish(topic string, message interface{}) ServerMessage {
	return ServerMessage{Action: "publish", Topic: topic, Message: message}
}

// CommandMessage is the outbound gateway command payload: `{action,
// device, service}` sent on the `command/<transport-prefix>` topic.
// Action carries whatever a trait handler's MapCommand produced
// (traits.Message, a JSON object) rather than a bare verb, since that is
// the payload executeCommand forwards per spec.md §4.D.
type CommandMessage struct {
	Action  interface{} `json:"action"`
	Device  string      `json:"device"`
	Service string      `json:"service"`
}

// DeviceInfo is one entry of a status/<clientId> payload's devices list.
// Loosely typed per spec.md §6: most fields are optional and Version is
// coerced to string regardless of its wire representation.
type DeviceInfo struct {
	IEEEAddress      string `json:"ieeeAddress"`
	Name             string `json:"name,omitempty"`
	Description      string `json:"description,omitempty"`
	ManufacturerName string `json:"manufacturerName,omitempty"`
	ModelName        string `json:"modelName,omitempty"`
	Firmware         string `json:"firmware,omitempty"`
	Version          string `json:"version,omitempty"`
	Active           bool   `json:"active,omitempty"`
	LastSeen         int64  `json:"lastSeen,omitempty"`
	LinkQuality      int    `json:"linkQuality,omitempty"`
}

// UnmarshalJSON tolerates Version arriving as either a JSON string or a
// JSON number, coercing it to string either way.
func (d *DeviceInfo) UnmarshalJSON(data []byte) error {
	type alias DeviceInfo
	var tmp struct {
		alias
		Version json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*d = DeviceInfo(tmp.alias)
	if len(tmp.Version) > 0 {
		var s string
		if err := json.Unmarshal(tmp.Version, &s); err == nil {
			d.Version = s
		} else {
			var n json.Number
			if err := json.Unmarshal(tmp.Version, &n); err == nil {
				d.Version = n.String()
			}
		}
	}
	return nil
}

// StatusPayload is the body of a `status/<clientId>` message.
type StatusPayload struct {
	Devices   []DeviceInfo `json:"devices,omitempty"`
	Names     bool         `json:"names,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// EndpointOptions is the recognized per-expose configuration bag carried
// on an expose/<device> payload entry, per spec.md §6. Unrecognized keys
// are preserved in Extra for passthrough to the capability mapper's
// generic options map.
type EndpointOptions struct {
	Switch            string                 `json:"switch,omitempty"`
	Lock              string                 `json:"lock,omitempty"`
	Light             []string               `json:"light,omitempty"`
	ColorTemperature  *MinMax                `json:"colorTemperature,omitempty"`
	Cover             string                 `json:"cover,omitempty"`
	InvertCover       bool                   `json:"invertCover,omitempty"`
	SystemMode        *EnumOption            `json:"systemMode,omitempty"`
	OperationMode     *EnumOption            `json:"operationMode,omitempty"`
	TargetTemperature *MinMax                `json:"targetTemperature,omitempty"`
	RunningStatus     bool                   `json:"runningStatus,omitempty"`
	Extra             map[string]interface{} `json:"-"`
}

// UnmarshalJSON decodes the recognized keys into their fields and keeps
// every other key in Extra.
func (o *EndpointOptions) UnmarshalJSON(data []byte) error {
	type alias EndpointOptions
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{"switch", "lock", "light", "colorTemperature", "cover", "invertCover", "systemMode", "operationMode", "targetTemperature", "runningStatus"} {
		delete(all, k)
	}
	*o = EndpointOptions(known)
	if len(all) > 0 {
		o.Extra = all
	}
	return nil
}

// MinMax is a {min?, max?} numeric range option.
type MinMax struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// EnumOption is a `{enum: [...]}` option.
type EnumOption struct {
	Enum []string `json:"enum,omitempty"`
}

// ExposePayload is the body of an `expose/<device>` message: endpoint id
// (as a string key, since JSON object keys are always strings) mapped to
// its declared exposes and options.
type ExposePayload map[string]ExposeEntry

// ExposeEntry is one endpoint's declared capability set.
type ExposeEntry struct {
	Items   []string         `json:"items"`
	Options *EndpointOptions `json:"options,omitempty"`
}

// DevicePayload is the body of a `device/<device>` message: online status.
type DevicePayload struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}

// ReadingPayload is the body of an `fd/<device>` message: a free-form
// mapping of expose name to reading value.
type ReadingPayload map[string]interface{}

// ToOptionsMap flattens EndpointOptions into the generic
// map[string]interface{} shape the capability and trait packages consume,
// merging any Extra entries the schema didn't recognize by name.
func (o *EndpointOptions) ToOptionsMap() map[string]interface{} {
	if o == nil {
		return nil
	}
	out := map[string]interface{}{}
	if o.Switch != "" {
		out["switch"] = o.Switch
	}
	if o.Lock != "" {
		out["lock"] = o.Lock
	}
	if len(o.Light) > 0 {
		out["light"] = o.Light
	}
	if o.ColorTemperature != nil {
		out["colorTemperature"] = o.ColorTemperature
	}
	if o.Cover != "" {
		out["cover"] = o.Cover
	}
	if o.InvertCover {
		out["invertCover"] = true
	}
	if o.SystemMode != nil {
		out["modes"] = o.SystemMode.Enum
	}
	if o.OperationMode != nil {
		out["operationMode"] = o.OperationMode.Enum
	}
	if o.TargetTemperature != nil {
		out["targetTemperature"] = o.TargetTemperature
	}
	if o.RunningStatus {
		out["runningStatus"] = true
	}
	for k, v := range o.Extra {
		out[k] = v
	}
	return out
}
