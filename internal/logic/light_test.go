package logic

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func newAutoLight(t *testing.T, s *Settings) (*LightArbiter, *fakeRelay) {
	t.Helper()
	relay := &fakeRelay{}
	a, err := NewLightArbiter(LightPolicyAuto, relay, s, DefaultParameters())
	if err != nil {
		t.Fatalf("NewLightArbiter: %v", err)
	}
	return a, relay
}

func TestNewLightArbiterUnknownPolicy(t *testing.T) {
	s := DefaultSettings()
	if _, err := NewLightArbiter("disco", &fakeRelay{}, &s, DefaultParameters()); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestNewLightArbiterDefaultsToRemote(t *testing.T) {
	s := DefaultSettings()
	a, err := NewLightArbiter("", &fakeRelay{}, &s, DefaultParameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Policy() != LightPolicyRemote {
		t.Errorf("policy: got %q, want remote", a.Policy())
	}
}

func TestTemperatureHysteresis(t *testing.T) {
	s := DefaultSettings()
	s.TempLimitEnabled = true
	s.TempTooColdC = 18.0
	a, _ := newAutoLight(t, &s)

	steps := []struct {
		temp float64
		want bool
	}{
		{20.0, false},
		{18.2, false}, // above threshold, latch never set
		{18.0, true},  // at threshold -> on
		{18.3, true},  // inside band -> sticky
		{18.49, true}, // inside band -> sticky
		{18.5, false}, // threshold+band -> off
		{18.2, false}, // inside band while off -> stays off
		{17.0, true},
	}
	for i, step := range steps {
		st, err := a.Update(LightInput{Now: t0.Add(time.Duration(i) * time.Second), Climate: warm(step.temp)})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if st.On != step.want {
			t.Errorf("step %d (%.2fC): on=%v, want %v", i, step.temp, st.On, step.want)
		}
		if st.On && st.Reason != ReasonTemperature {
			t.Errorf("step %d: reason %q, want temperature", i, st.Reason)
		}
	}
}

func TestTemperatureLatchNoChatterProperty(t *testing.T) {
	s := DefaultSettings()
	s.TempLimitEnabled = true
	s.TempTooColdC = 18.0
	a, _ := newAutoLight(t, &s)
	hys := DefaultParameters().TempHysteresisC

	rng := rand.New(rand.NewSource(42))
	latched := false
	for i := 0; i < 5000; i++ {
		temp := 16.0 + rng.Float64()*4.0
		st, _ := a.Update(LightInput{Now: t0.Add(time.Duration(i) * time.Second), Climate: warm(temp)})
		if latched && !st.TempRequestOn && temp < s.TempTooColdC+hys {
			t.Fatalf("sample %d: latch released at %.3fC (< %.3fC)", i, temp, s.TempTooColdC+hys)
		}
		latched = st.TempRequestOn
	}
}

func TestTemperatureLatchIgnoresNonPositiveBand(t *testing.T) {
	for _, band := range []float64{-1, 0} {
		s := DefaultSettings()
		s.TempLimitEnabled = true
		s.TempTooColdC = 18.0
		p := DefaultParameters()
		p.TempHysteresisC = band
		relay := &fakeRelay{}
		a, err := NewLightArbiter(LightPolicyAuto, relay, &s, p)
		if err != nil {
			t.Fatal(err)
		}

		flips := 0
		prev := false
		for i := 0; i < 20; i++ {
			for _, temp := range []float64{17.5, 18.0} {
				st, _ := a.Update(LightInput{Now: t0.Add(ms(50 * i)), Climate: warm(temp)})
				if st.On != prev {
					flips++
					prev = st.On
				}
			}
		}
		if flips != 1 {
			t.Errorf("band %v: relay flipped %d times under a steady reading, want 1", band, flips)
		}
	}
}

func TestTemperatureLatchResetsOnInvalidReading(t *testing.T) {
	s := DefaultSettings()
	s.TempLimitEnabled = true
	a, _ := newAutoLight(t, &s)

	st, _ := a.Update(LightInput{Now: t0, Climate: warm(10)})
	if !st.On {
		t.Fatal("expected on when cold")
	}
	st, _ = a.Update(LightInput{Now: t0.Add(time.Second), Climate: Climate{OK: false}})
	if st.On || st.TempRequestOn {
		t.Error("invalid reading must release the temperature latch")
	}
}

func TestTemperatureLatchResetsWhenDisabled(t *testing.T) {
	s := DefaultSettings()
	s.TempLimitEnabled = true
	a, _ := newAutoLight(t, &s)

	a.Update(LightInput{Now: t0, Climate: warm(10)})
	s.TempLimitEnabled = false
	st, _ := a.Update(LightInput{Now: t0.Add(time.Second), Climate: warm(10)})
	if st.On {
		t.Error("disabled temperature limit must not hold the light on")
	}
}

func TestMotionWindow(t *testing.T) {
	s := DefaultSettings()
	a, _ := newAutoLight(t, &s)
	window := DefaultParameters().LightOnAfterMotion

	st, _ := a.Update(LightInput{Now: t0, Motion: true})
	if !st.On || st.Reason != ReasonMotion {
		t.Fatalf("expected on by motion, got on=%v reason=%q", st.On, st.Reason)
	}
	st, _ = a.Update(LightInput{Now: t0.Add(window - time.Millisecond)})
	if !st.On {
		t.Error("expected on just inside motion window")
	}
	st, _ = a.Update(LightInput{Now: t0.Add(window)})
	if st.On {
		t.Error("expected off once motion window elapsed")
	}
	if !st.LastMotion.Equal(t0) {
		t.Errorf("LastMotion: got %v, want %v", st.LastMotion, t0)
	}
}

func TestNoMotionEverKeepsLightOff(t *testing.T) {
	s := DefaultSettings()
	a, _ := newAutoLight(t, &s)
	st, _ := a.Update(LightInput{Now: t0})
	if st.On {
		t.Error("light should be off with no motion and no temperature request")
	}
	if st.Reason != ReasonIdle {
		t.Errorf("reason: got %q, want idle", st.Reason)
	}
}

func TestApplyParamsChangesMotionWindow(t *testing.T) {
	s := DefaultSettings()
	a, _ := newAutoLight(t, &s)
	p := DefaultParameters()
	p.LightOnAfterMotion = 5 * time.Second
	a.ApplyParams(p)

	a.Update(LightInput{Now: t0, Motion: true})
	st, _ := a.Update(LightInput{Now: t0.Add(6 * time.Second)})
	if st.On {
		t.Error("expected off after shortened motion window")
	}
}

func TestRemoteOverrideBeatsAutomatic(t *testing.T) {
	s := DefaultSettings()
	s.TempLimitEnabled = true
	a, _ := newAutoLight(t, &s)

	s.SetRemoteOverride(true, false)
	st, _ := a.Update(LightInput{Now: t0, Motion: true, Climate: warm(5)})
	if st.On {
		t.Error("remote override OFF must beat motion and cold")
	}
	if st.Reason != ReasonRemoteOverride {
		t.Errorf("reason: got %q, want remote_override", st.Reason)
	}

	s.SetRemoteOverride(true, true)
	st, _ = a.Update(LightInput{Now: t0.Add(time.Second), Climate: warm(30)})
	if !st.On {
		t.Error("remote override ON should turn the light on")
	}

	s.SetRemoteOverride(false, false)
	st, _ = a.Update(LightInput{Now: t0.Add(2 * time.Second), Climate: warm(30)})
	if !st.On || st.Reason != ReasonMotion {
		t.Errorf("after clearing override expected motion window on, got on=%v reason=%q", st.On, st.Reason)
	}
}

func TestManualOffIsAbsolute(t *testing.T) {
	for _, policy := range []LightPolicyName{LightPolicyAuto, LightPolicyRemote} {
		for mask := 0; mask < 64; mask++ {
			s := DefaultSettings()
			s.ManualOff = true
			s.RemoteOverrideEnabled = mask&1 != 0
			s.RemoteLightOn = mask&2 != 0
			s.TempLimitEnabled = mask&4 != 0
			s.SelfLightEnable = mask&8 != 0
			in := LightInput{Now: t0, Motion: mask&16 != 0}
			if mask&32 != 0 {
				in.Climate = warm(5)
			}

			relay := &fakeRelay{on: true}
			a, _ := NewLightArbiter(policy, relay, &s, DefaultParameters())
			st, err := a.Update(in)
			if err != nil {
				t.Fatalf("%s mask %d: %v", policy, mask, err)
			}
			if st.On || relay.on {
				t.Errorf("%s mask %d: manual-off must force OFF", policy, mask)
			}
			if st.Reason != ReasonManualOff {
				t.Errorf("%s mask %d: reason %q, want manual_off", policy, mask, st.Reason)
			}
		}
	}
}

func TestRemotePolicyFollowsFlag(t *testing.T) {
	s := DefaultSettings()
	relay := &fakeRelay{}
	a, _ := NewLightArbiter(LightPolicyRemote, relay, &s, DefaultParameters())

	s.SelfLightEnable = true
	st, _ := a.Update(LightInput{Now: t0, Climate: warm(30)})
	if !st.On {
		t.Error("flag ON should turn light on")
	}

	s.SelfLightEnable = false
	st, _ = a.Update(LightInput{Now: t0, Climate: warm(30)})
	if st.On {
		t.Error("flag OFF with warm reading should turn light off")
	}
}

func TestRemotePolicySafetyFloor(t *testing.T) {
	s := DefaultSettings()
	s.SelfLightEnable = false
	a, _ := NewLightArbiter(LightPolicyRemote, &fakeRelay{}, &s, DefaultParameters())

	tests := []struct {
		name    string
		climate Climate
		want    bool
	}{
		{"cold", warm(15), true},
		{"just below floor", warm(22.9), true},
		{"at floor", warm(23.0), false},
		{"invalid", Climate{OK: false, TemperatureC: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := a.Update(LightInput{Now: t0, Climate: tt.climate})
			if st.On != tt.want {
				t.Errorf("on=%v, want %v", st.On, tt.want)
			}
			if tt.want && st.Reason != ReasonSafetyFloor {
				t.Errorf("reason %q, want safety_floor", st.Reason)
			}
		})
	}
}

func TestLightWritesThroughEveryCycle(t *testing.T) {
	s := DefaultSettings()
	relay := &fakeRelay{}
	a, _ := NewLightArbiter(LightPolicyRemote, relay, &s, DefaultParameters())
	for i := 0; i < 5; i++ {
		a.Update(LightInput{Now: t0.Add(time.Duration(i) * time.Second)})
	}
	if relay.writes != 5 {
		t.Errorf("writes: got %d, want 5", relay.writes)
	}
}

func TestLightRelayError(t *testing.T) {
	s := DefaultSettings()
	relay := &fakeRelay{err: errRelay}
	a, _ := NewLightArbiter(LightPolicyRemote, relay, &s, DefaultParameters())
	st, err := a.Update(LightInput{Now: t0})
	if !errors.Is(err, errRelay) {
		t.Fatalf("expected relay error, got %v", err)
	}
	if st.On {
		t.Error("state must reflect the relay, which never turned on")
	}
}
