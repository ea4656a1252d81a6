package logic

import (
	"fmt"
	"time"
)

// WateringPolicyName selects the valve strategy.
type WateringPolicyName string

const (
	// WateringPolicyRemote drives the valve straight from self_valve_enable.
	WateringPolicyRemote WateringPolicyName = "remote"
	// WateringPolicyTimer waters for WateringDuration every WateringInterval.
	WateringPolicyTimer WateringPolicyName = "timer"
	// WateringPolicyMoisture waters between dry/wet thresholds with min dwell.
	WateringPolicyMoisture WateringPolicyName = "moisture"
)

// WateringInput is the sensor snapshot for one cycle.
type WateringInput struct {
	Now  time.Time
	Soil SoilReading
}

// WateringState is the last resolved valve decision plus diagnostics.
type WateringState struct {
	ValveOn bool
	Reason  Reason
	Policy  WateringPolicyName

	SelfValveEnable bool

	// Timer policy
	IsWatering        bool
	LastWateringStart time.Time
	NextWateringDue   time.Time

	// Moisture policy
	SoilOK     bool
	SoilRaw    int
	IsDry      bool
	LastSwitch time.Time

	FeedbackPulse      bool
	FeedbackPulseUntil time.Time
}

type wateringPolicy interface {
	decide(in WateringInput, s *Settings, p *RuntimeParameters, st *WateringState) (bool, Reason)
}

// WateringArbiter resolves the active strategy plus the feedback pulse into
// the valve relay.
type WateringArbiter struct {
	out        Actuator
	settings   *Settings
	params     RuntimeParameters
	policy     wateringPolicy
	name       WateringPolicyName
	pulseUntil time.Time
	state      WateringState
}

// NewWateringArbiter creates an arbiter for the named policy.
func NewWateringArbiter(name WateringPolicyName, out Actuator, settings *Settings, params RuntimeParameters) (*WateringArbiter, error) {
	var p wateringPolicy
	switch name {
	case WateringPolicyRemote, "":
		name = WateringPolicyRemote
		p = remoteValve{}
	case WateringPolicyTimer:
		p = &timerValve{}
	case WateringPolicyMoisture:
		p = &moistureValve{}
	default:
		return nil, fmt.Errorf("unknown watering policy %q", name)
	}
	return &WateringArbiter{
		out:      out,
		settings: settings,
		params:   params,
		policy:   p,
		name:     name,
		state:    WateringState{Policy: name},
	}, nil
}

// Policy returns the active policy name.
func (a *WateringArbiter) Policy() WateringPolicyName {
	return a.name
}

// ApplyParams replaces the arbiter's copy of the runtime parameters.
func (a *WateringArbiter) ApplyParams(p RuntimeParameters) {
	a.params = p
}

// TriggerFeedbackPulse forces the valve on for FeedbackPulseDuration from now.
func (a *WateringArbiter) TriggerFeedbackPulse(now time.Time) {
	a.pulseUntil = now.Add(FeedbackPulseDuration)
}

// Update resolves the valve for one cycle and writes it through.
// While a feedback pulse is active the underlying policy is not consulted,
// so its timers resume where they left off.
func (a *WateringArbiter) Update(in WateringInput) (WateringState, error) {
	st := &a.state
	st.SelfValveEnable = a.settings.SelfValveEnable

	var on bool
	var reason Reason
	if in.Now.Before(a.pulseUntil) {
		on, reason = true, ReasonFeedbackPulse
		st.FeedbackPulse = true
		st.FeedbackPulseUntil = a.pulseUntil
	} else {
		st.FeedbackPulse = false
		on, reason = a.policy.decide(in, a.settings, &a.params, st)
	}

	err := a.out.SetOn(on)
	st.ValveOn = a.out.IsOn()
	st.Reason = reason
	if err != nil {
		return *st, fmt.Errorf("set valve relay: %w", err)
	}
	return *st, nil
}

// State returns the last resolved state.
func (a *WateringArbiter) State() WateringState {
	return a.state
}

type remoteValve struct{}

func (remoteValve) decide(_ WateringInput, s *Settings, _ *RuntimeParameters, _ *WateringState) (bool, Reason) {
	return s.SelfValveEnable, ReasonRemoteFlag
}

type timerValve struct {
	isWatering bool
	started    bool
	lastStart  time.Time
}

func (t *timerValve) decide(in WateringInput, _ *Settings, p *RuntimeParameters, st *WateringState) (bool, Reason) {
	if p.WateringInterval <= 0 || p.WateringDuration <= 0 {
		t.isWatering = false
	} else if !t.isWatering {
		if !t.started || in.Now.Sub(t.lastStart) >= p.WateringInterval {
			t.isWatering = true
			t.started = true
			t.lastStart = in.Now
		}
	} else if in.Now.Sub(t.lastStart) >= p.WateringDuration {
		t.isWatering = false
	}

	st.IsWatering = t.isWatering
	st.LastWateringStart = t.lastStart
	if t.started {
		st.NextWateringDue = t.lastStart.Add(p.WateringInterval)
	}
	if t.isWatering {
		return true, ReasonTimer
	}
	return false, ReasonIdle
}

type moistureValve struct {
	isDry      bool
	on         bool
	switched   bool
	lastSwitch time.Time
}

func (m *moistureValve) decide(in WateringInput, _ *Settings, p *RuntimeParameters, st *WateringState) (bool, Reason) {
	// An invalid reading never asks for water.
	if !in.Soil.OK {
		m.isDry = false
	} else if in.Soil.Raw <= p.SoilDryRaw {
		m.isDry = true
	} else if in.Soil.Raw >= p.SoilWetRaw {
		m.isDry = false
	}

	elapsed := in.Now.Sub(m.lastSwitch)
	if m.isDry && !m.on && (!m.switched || elapsed >= p.MinValveOff) {
		m.on = true
		m.switched = true
		m.lastSwitch = in.Now
	} else if !m.isDry && m.on && elapsed >= p.MinValveOn {
		m.on = false
		m.lastSwitch = in.Now
	}

	st.SoilOK = in.Soil.OK
	st.SoilRaw = in.Soil.Raw
	st.IsDry = m.isDry
	st.LastSwitch = m.lastSwitch
	if m.on {
		return true, ReasonMoisture
	}
	return false, ReasonIdle
}
