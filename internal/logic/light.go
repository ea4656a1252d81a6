package logic

import (
	"fmt"
	"time"
)

// LightPolicyName selects the light arbitration strategy.
type LightPolicyName string

const (
	// LightPolicyAuto: remote override, else temperature hysteresis or motion.
	LightPolicyAuto LightPolicyName = "auto"
	// LightPolicyRemote: follow self_light_enable, with the safety floor interlock.
	LightPolicyRemote LightPolicyName = "remote"
)

// LightInput is the sensor snapshot for one cycle.
type LightInput struct {
	Now    time.Time
	Motion bool
	Climate
}

// LightState is the last resolved light decision plus diagnostics.
type LightState struct {
	On     bool
	Reason Reason
	Policy LightPolicyName

	MotionDetected bool
	LastMotion     time.Time
	TempRequestOn  bool

	ManualOff             bool
	RemoteOverrideEnabled bool
	TempLimitEnabled      bool
	TempTooColdC          float64
	SelfLightEnable       bool
}

// lightPolicy decides the light below the manual-off latch.
type lightPolicy interface {
	decide(in LightInput, s *Settings, p *RuntimeParameters, st *LightState) (bool, Reason)
}

// LightArbiter resolves manual, remote and automatic signals into the light relay.
type LightArbiter struct {
	out      Actuator
	settings *Settings
	params   RuntimeParameters
	policy   lightPolicy
	name     LightPolicyName
	state    LightState
}

// NewLightArbiter creates an arbiter for the named policy. Settings are read
// by reference every cycle; parameters are pushed with ApplyParams.
func NewLightArbiter(name LightPolicyName, out Actuator, settings *Settings, params RuntimeParameters) (*LightArbiter, error) {
	var p lightPolicy
	switch name {
	case LightPolicyAuto:
		p = &autoLight{}
	case LightPolicyRemote, "":
		name = LightPolicyRemote
		p = remoteLight{}
	default:
		return nil, fmt.Errorf("unknown light policy %q", name)
	}
	return &LightArbiter{
		out:      out,
		settings: settings,
		params:   params,
		policy:   p,
		name:     name,
		state:    LightState{Policy: name},
	}, nil
}

// Policy returns the active policy name.
func (a *LightArbiter) Policy() LightPolicyName {
	return a.name
}

// ApplyParams replaces the arbiter's copy of the runtime parameters.
func (a *LightArbiter) ApplyParams(p RuntimeParameters) {
	a.params = p
}

// Update resolves the light for one cycle and writes the result to the
// actuator, even when it is unchanged.
func (a *LightArbiter) Update(in LightInput) (LightState, error) {
	s := a.settings
	st := &a.state

	st.MotionDetected = in.Motion
	st.ManualOff = s.ManualOff
	st.RemoteOverrideEnabled = s.RemoteOverrideEnabled
	st.TempLimitEnabled = s.TempLimitEnabled
	st.TempTooColdC = s.TempTooColdC
	st.SelfLightEnable = s.SelfLightEnable

	// The policy always runs so its latches track the inputs while manual-off holds.
	on, reason := a.policy.decide(in, s, &a.params, st)
	if s.ManualOff {
		on, reason = false, ReasonManualOff
	}

	err := a.out.SetOn(on)
	st.On = a.out.IsOn()
	st.Reason = reason
	if err != nil {
		return *st, fmt.Errorf("set light relay: %w", err)
	}
	return *st, nil
}

// State returns the last resolved state.
func (a *LightArbiter) State() LightState {
	return a.state
}

type autoLight struct {
	tempRequestOn bool
	motionSeen    bool
	lastMotion    time.Time
}

func (l *autoLight) decide(in LightInput, s *Settings, p *RuntimeParameters, st *LightState) (bool, Reason) {
	// Hysteresis latch: on at or below threshold, off at or above threshold+band.
	// Disabled or invalid readings reset it so a stale value never holds the light on.
	band := p.TempHysteresisC
	if !(band >= MinTempHysteresisC) {
		band = MinTempHysteresisC
	}
	if s.TempLimitEnabled && in.OK {
		if !l.tempRequestOn && in.TemperatureC <= s.TempTooColdC {
			l.tempRequestOn = true
		} else if l.tempRequestOn && in.TemperatureC >= s.TempTooColdC+band {
			l.tempRequestOn = false
		}
	} else {
		l.tempRequestOn = false
	}

	if in.Motion {
		l.motionSeen = true
		l.lastMotion = in.Now
	}
	motionRequest := l.motionSeen && in.Now.Sub(l.lastMotion) < p.LightOnAfterMotion

	st.TempRequestOn = l.tempRequestOn
	st.LastMotion = l.lastMotion

	switch {
	case s.RemoteOverrideEnabled:
		return s.RemoteLightOn, ReasonRemoteOverride
	case l.tempRequestOn:
		return true, ReasonTemperature
	case motionRequest:
		return true, ReasonMotion
	default:
		return false, ReasonIdle
	}
}

type remoteLight struct{}

func (remoteLight) decide(in LightInput, s *Settings, _ *RuntimeParameters, _ *LightState) (bool, Reason) {
	if s.SelfLightEnable {
		return true, ReasonRemoteFlag
	}
	if in.OK && in.TemperatureC < SafetyFloorC {
		return true, ReasonSafetyFloor
	}
	return false, ReasonRemoteFlag
}
