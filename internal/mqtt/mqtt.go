// Package mqtt provides the cloud session over an MQTT broker using the
// ThingsBoard device API, with a transport abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"time"
)

// ThingsBoard device API topics.
const (
	TopicTelemetry          = "v1/devices/me/telemetry"
	TopicAttributes         = "v1/devices/me/attributes"
	TopicAttributesResponse = TopicAttributes + "/response/+"
	TopicRPCRequest         = "v1/devices/me/rpc/request/+"

	topicAttributesResponsePrefix = TopicAttributes + "/response/"
	topicAttributesRequestPrefix  = TopicAttributes + "/request/"
	topicRPCRequestPrefix         = "v1/devices/me/rpc/request/"
	topicRPCResponsePrefix        = "v1/devices/me/rpc/response/"
)

// Session timing defaults.
const (
	DefaultRetryInterval    = 5 * time.Second
	DefaultAttrRequestDelay = 2 * time.Second
	DefaultConnectTimeout   = 5 * time.Second
	DefaultInboxSize        = 32
)

var (
	// ErrNotConnected is returned by publishes attempted while offline.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrUnknownMethod is returned by a CommandHandler for unrecognized methods.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrBusy is acknowledged for commands that overflowed the inbox.
	ErrBusy = errors.New("busy")
)

// Transport is the broker connection the session drives.
// The message handler may be called from any goroutine.
type Transport interface {
	Connect(timeout time.Duration) error
	IsConnected() bool
	Publish(topic string, payload []byte) error
	Subscribe(topic string) error
	SetMessageHandler(h func(topic string, payload []byte))
	Disconnect()
}

// Telemetry is one flat telemetry object. Nil pointers encode as null.
type Telemetry struct {
	TemperatureC  *float64 `json:"temperature_c"`
	HumidityPct   *float64 `json:"humidity_pct"`
	Motion        bool     `json:"motion"`
	AirQualityRaw *int     `json:"air_quality_raw"`
	LightLux      *float64 `json:"light_lux"`
	SoilRaw       *int     `json:"soil_raw"`

	LightOn               bool   `json:"light_on"`
	LightReason           string `json:"light_reason"`
	ManualOff             bool   `json:"manual_off"`
	RemoteOverrideEnabled bool   `json:"remote_override_enabled"`
	TempLimitEnabled      bool   `json:"temp_limit_enabled"`
	SelfLightEnable       bool   `json:"self_light_enable"`

	ValveOn         bool   `json:"valve_on"`
	ValveReason     string `json:"valve_reason"`
	SelfValveEnable bool   `json:"self_valve_enable"`
	IsDry           *bool  `json:"is_dry,omitempty"`
	IsWatering      *bool  `json:"is_watering,omitempty"`
}

// FormatTelemetry creates the JSON payload for a telemetry publish.
func FormatTelemetry(t Telemetry) ([]byte, error) {
	return json.Marshal(t)
}

// rpcRequest is the body of a command message.
type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// rpcResponse is the acknowledgement published for every command.
type rpcResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// FormatAck creates the acknowledgement payload for a command result.
func FormatAck(err error) ([]byte, error) {
	r := rpcResponse{OK: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	return json.Marshal(r)
}

// FormatAttributesRequest creates the shared attribute request payload.
func FormatAttributesRequest(sharedKeys string) ([]byte, error) {
	return json.Marshal(map[string]string{"sharedKeys": sharedKeys})
}
