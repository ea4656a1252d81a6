package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Device        string       `json:"device"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Light         LightJSON    `json:"light"`
	Watering      WateringJSON `json:"watering"`
	Sensors       SensorsJSON  `json:"sensors"`
	Params        ParamsJSON   `json:"params"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LightJSON is the light arbiter state.
type LightJSON struct {
	On                    bool    `json:"on"`
	Reason                string  `json:"reason"`
	Policy                string  `json:"policy"`
	ManualOff             bool    `json:"manual_off"`
	RemoteOverrideEnabled bool    `json:"remote_override_enabled"`
	TempLimitEnabled      bool    `json:"temp_limit_enabled"`
	TempTooColdC          float64 `json:"temp_too_cold_c"`
	TempRequestOn         bool    `json:"temp_request_on"`
	SelfLightEnable       bool    `json:"self_light_enable"`
}

// WateringJSON is the watering arbiter state.
type WateringJSON struct {
	ValveOn           bool    `json:"valve_on"`
	Reason            string  `json:"reason"`
	Policy            string  `json:"policy"`
	SelfValveEnable   bool    `json:"self_valve_enable"`
	IsWatering        bool    `json:"is_watering"`
	IsDry             bool    `json:"is_dry"`
	LastWateringStart *string `json:"last_watering_start"`
	NextWateringDue   *string `json:"next_watering_due"`
	FeedbackPulse     bool    `json:"feedback_pulse"`
}

// SensorsJSON is the last sensor snapshot. Nil means invalid.
type SensorsJSON struct {
	ReadAt        *string  `json:"read_at"`
	TemperatureC  *float64 `json:"temperature_c"`
	HumidityPct   *float64 `json:"humidity_pct"`
	Motion        bool     `json:"motion"`
	SoilRaw       *int     `json:"soil_raw"`
	LightLux      *float64 `json:"light_lux"`
	AirQualityRaw *int     `json:"air_quality_raw"`
}

// ParamsJSON is the active runtime parameters in remote key naming.
type ParamsJSON struct {
	TelemetryIntervalMs  int64   `json:"telemetryIntervalMs"`
	SensorReadIntervalMs int64   `json:"sensorReadIntervalMs"`
	TempLightEnabled     bool    `json:"tempLightEnabled"`
	TempTooColdC         float64 `json:"tempTooColdC"`
	TempHysteresisC      float64 `json:"tempHysteresisC"`
	LightOnAfterMotionMs int64   `json:"lightOnAfterMotionMs"`
	MinValveOnMs         int64   `json:"minValveOnMs"`
	MinValveOffMs        int64   `json:"minValveOffMs"`
	WateringIntervalMs   int64   `json:"wateringIntervalMs"`
	WateringDurationMs   int64   `json:"wateringDurationMs"`
	SoilDryRaw           int     `json:"soilDryRaw"`
	SoilWetRaw           int     `json:"soilWetRaw"`
	SelfLightEnable      bool    `json:"self_light_enable"`
	SelfValveEnable      bool    `json:"self_valve_enable"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ButtonPresses   int `json:"button_presses"`
	Commands        int `json:"commands"`
	ConfigChanges   int `json:"config_changes"`
	TelemetrySent   int `json:"telemetry_sent"`
	TelemetryFailed int `json:"telemetry_failed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	CycleMs        int64  `json:"cycle_ms"`
	DebounceMs     int64  `json:"debounce_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	LightPolicy    string `json:"light_policy"`
	WateringPolicy string `json:"watering_policy"`
}

func timeOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func buildInner(snap Snapshot) StatusInner {
	l, w, s, p := snap.Light, snap.Watering, snap.Sensors, snap.Params
	inner := StatusInner{
		Device:        snap.Config.DeviceName,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Light: LightJSON{
			On:                    l.On,
			Reason:                string(l.Reason),
			Policy:                string(l.Policy),
			ManualOff:             l.ManualOff,
			RemoteOverrideEnabled: l.RemoteOverrideEnabled,
			TempLimitEnabled:      l.TempLimitEnabled,
			TempTooColdC:          l.TempTooColdC,
			TempRequestOn:         l.TempRequestOn,
			SelfLightEnable:       l.SelfLightEnable,
		},
		Watering: WateringJSON{
			ValveOn:           w.ValveOn,
			Reason:            string(w.Reason),
			Policy:            string(w.Policy),
			SelfValveEnable:   w.SelfValveEnable,
			IsWatering:        w.IsWatering,
			IsDry:             w.IsDry,
			LastWateringStart: timeOrNil(w.LastWateringStart),
			NextWateringDue:   timeOrNil(w.NextWateringDue),
			FeedbackPulse:     w.FeedbackPulse,
		},
		Sensors: SensorsJSON{
			ReadAt:        timeOrNil(s.ReadAt),
			TemperatureC:  ptr(s.Climate.TemperatureC, s.Climate.OK),
			HumidityPct:   ptr(s.Climate.HumidityPct, s.Climate.OK),
			Motion:        s.Motion,
			SoilRaw:       ptr(s.Soil.Raw, s.Soil.OK),
			LightLux:      ptr(s.LightLux, s.LightLuxOK),
			AirQualityRaw: ptr(s.AirQualityRaw, s.AirQualityOK),
		},
		Params: ParamsJSON{
			TelemetryIntervalMs:  p.TelemetryInterval.Milliseconds(),
			SensorReadIntervalMs: p.SensorReadInterval.Milliseconds(),
			TempLightEnabled:     p.TempLightEnabled,
			TempTooColdC:         p.TempTooColdC,
			TempHysteresisC:      p.TempHysteresisC,
			LightOnAfterMotionMs: p.LightOnAfterMotion.Milliseconds(),
			MinValveOnMs:         p.MinValveOn.Milliseconds(),
			MinValveOffMs:        p.MinValveOff.Milliseconds(),
			WateringIntervalMs:   p.WateringInterval.Milliseconds(),
			WateringDurationMs:   p.WateringDuration.Milliseconds(),
			SoilDryRaw:           p.SoilDryRaw,
			SoilWetRaw:           p.SoilWetRaw,
			SelfLightEnable:      p.SelfLightEnable,
			SelfValveEnable:      p.SelfValveEnable,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, State: snap.SessionState, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ButtonPresses:   snap.Counts.ButtonPresses,
			Commands:        snap.Counts.Commands,
			ConfigChanges:   snap.Counts.ConfigChanges,
			TelemetrySent:   snap.Counts.TelemetrySent,
			TelemetryFailed: snap.Counts.TelemetryFailed,
		},
		Config: ConfigJSON{
			CycleMs:        snap.Config.CycleMs,
			DebounceMs:     snap.Config.DebounceMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
			LightPolicy:    snap.Config.LightPolicy,
			WateringPolicy: snap.Config.WateringPolicy,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// Build returns the JSON document for a snapshot.
func Build(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}

// FormatJSON returns the indented JSON status for the web endpoint and CLI.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
	return data
}
