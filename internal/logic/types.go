// Package logic contains the pure decision logic for the garden controller:
// actuator arbitration, input debouncing and the runtime parameter record.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Floors applied to remotely supplied intervals.
const (
	MinTelemetryInterval  = 1000 * time.Millisecond
	MinSensorReadInterval = 2000 * time.Millisecond
)

// MinTempHysteresisC is the narrowest temperature band the light latch
// accepts. A zero or negative band would toggle the relay every cycle.
const MinTempHysteresisC = 0.1

// SafetyFloorC is the temperature below which the remote light policy keeps
// the light on even when the cloud asks for OFF. It is not remotely settable.
const SafetyFloorC = 23.0

// FeedbackPulseDuration is how long a valve feedback pulse forces the valve on.
const FeedbackPulseDuration = 2 * time.Second

// RuntimeParameters holds the tunable values every decision reads.
// Mutated only through the remote config synchronizer.
type RuntimeParameters struct {
	TelemetryInterval  time.Duration
	SensorReadInterval time.Duration

	// Temperature-light feature
	TempLightEnabled bool
	TempTooColdC     float64
	TempHysteresisC  float64

	LightOnAfterMotion time.Duration

	MinValveOn  time.Duration
	MinValveOff time.Duration

	WateringInterval time.Duration
	WateringDuration time.Duration

	// Raw soil thresholds: water at or below dry, stop at or above wet.
	SoilDryRaw int
	SoilWetRaw int

	SelfLightEnable bool
	SelfValveEnable bool
}

// DefaultParameters returns the compiled-in defaults used at boot.
func DefaultParameters() RuntimeParameters {
	return RuntimeParameters{
		TelemetryInterval:  10 * time.Second,
		SensorReadInterval: 5 * time.Second,
		TempLightEnabled:   false,
		TempTooColdC:       18.0,
		TempHysteresisC:    0.5,
		LightOnAfterMotion: 60 * time.Second,
		MinValveOn:         30 * time.Second,
		MinValveOff:        60 * time.Second,
		WateringInterval:   60 * time.Second,
		WateringDuration:   30 * time.Second,
		SoilDryRaw:         1800,
		SoilWetRaw:         2400,
		SelfLightEnable:    true,
		SelfValveEnable:    false,
	}
}

// Clamp raises intervals and the hysteresis band that are below their
// safety floor. Returns true if any value was changed.
func (p *RuntimeParameters) Clamp() bool {
	changed := false
	if !(p.TempHysteresisC >= MinTempHysteresisC) {
		p.TempHysteresisC = MinTempHysteresisC
		changed = true
	}
	if p.SensorReadInterval < MinSensorReadInterval {
		p.SensorReadInterval = MinSensorReadInterval
		changed = true
	}
	if p.TelemetryInterval < MinTelemetryInterval {
		p.TelemetryInterval = MinTelemetryInterval
		changed = true
	}
	return changed
}

// Settings is the operator and remote intent that is latched locally,
// as opposed to the tunable RuntimeParameters.
type Settings struct {
	// ManualOff is the local button latch. When set, the light stays off.
	ManualOff bool

	// Remote override from a dashboard or schedule (setLight RPC).
	RemoteOverrideEnabled bool
	RemoteLightOn         bool

	TempLimitEnabled bool
	TempTooColdC     float64

	SelfLightEnable bool
	SelfValveEnable bool
}

// DefaultSettings returns the boot-time settings.
func DefaultSettings() Settings {
	return Settings{
		TempTooColdC:    18.0,
		SelfLightEnable: true,
	}
}

// ToggleManualOff flips the manual-off latch.
func (s *Settings) ToggleManualOff() {
	s.ManualOff = !s.ManualOff
}

// SetRemoteOverride sets or clears the remote light override.
func (s *Settings) SetRemoteOverride(enabled, on bool) {
	s.RemoteOverrideEnabled = enabled
	s.RemoteLightOn = on
}

// MirrorParameters copies the parameter fields that Settings shadows.
func (s *Settings) MirrorParameters(p RuntimeParameters) {
	s.TempLimitEnabled = p.TempLightEnabled
	s.TempTooColdC = p.TempTooColdC
	s.SelfLightEnable = p.SelfLightEnable
	s.SelfValveEnable = p.SelfValveEnable
}

// Actuator is a boolean output. Electrical polarity is the implementation's concern.
type Actuator interface {
	SetOn(on bool) error
	IsOn() bool
}

// Climate is a temperature/humidity sample. OK is false when the sensor
// failed; the other fields must not be used in that case.
type Climate struct {
	OK           bool
	TemperatureC float64
	HumidityPct  float64
}

// SoilReading is a raw moisture sample.
type SoilReading struct {
	OK  bool
	Raw int
}

// Reason names the signal that won arbitration.
type Reason string

const (
	ReasonManualOff      Reason = "manual_off"
	ReasonRemoteOverride Reason = "remote_override"
	ReasonTemperature    Reason = "temperature"
	ReasonMotion         Reason = "motion"
	ReasonRemoteFlag     Reason = "remote_flag"
	ReasonSafetyFloor    Reason = "safety_floor"
	ReasonTimer          Reason = "timer"
	ReasonMoisture       Reason = "moisture"
	ReasonFeedbackPulse  Reason = "feedback_pulse"
	ReasonIdle           Reason = "idle"
)
