package logic

import "testing"

func TestClampRaisesFloors(t *testing.T) {
	p := DefaultParameters()
	if p.Clamp() {
		t.Fatal("defaults should already satisfy the floors")
	}

	p.SensorReadInterval = ms(500)
	p.TelemetryInterval = 0
	if !p.Clamp() {
		t.Fatal("expected Clamp to report a change")
	}
	if p.SensorReadInterval != MinSensorReadInterval {
		t.Errorf("sensor interval = %v, want %v", p.SensorReadInterval, MinSensorReadInterval)
	}
	if p.TelemetryInterval != MinTelemetryInterval {
		t.Errorf("telemetry interval = %v, want %v", p.TelemetryInterval, MinTelemetryInterval)
	}
	if p.Clamp() {
		t.Error("second Clamp should be a no-op")
	}

	p.TempHysteresisC = -0.5
	if !p.Clamp() || p.TempHysteresisC != MinTempHysteresisC {
		t.Errorf("band = %v, want %v", p.TempHysteresisC, MinTempHysteresisC)
	}
}

func TestSettingsMirrorAndToggle(t *testing.T) {
	s := DefaultSettings()
	p := DefaultParameters()
	p.TempLightEnabled = true
	p.TempTooColdC = 9.5
	p.SelfLightEnable = false
	p.SelfValveEnable = true

	s.MirrorParameters(p)
	if !s.TempLimitEnabled || s.TempTooColdC != 9.5 || s.SelfLightEnable || !s.SelfValveEnable {
		t.Errorf("mirrored settings = %+v", s)
	}

	s.ToggleManualOff()
	s.ToggleManualOff()
	if s.ManualOff {
		t.Error("two toggles should leave manual-off clear")
	}

	s.SetRemoteOverride(true, true)
	if !s.RemoteOverrideEnabled || !s.RemoteLightOn {
		t.Errorf("override = %v/%v", s.RemoteOverrideEnabled, s.RemoteLightOn)
	}
}
