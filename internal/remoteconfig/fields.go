package remoteconfig

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/garden-controller/internal/logic"
	"github.com/sweeney/garden-controller/internal/store"
)

// floatEpsilon is the smallest difference that counts as a float change.
const floatEpsilon = 0.0001

// field binds one remote key to a RuntimeParameters member and its store key.
type field struct {
	key  string
	pref string

	// merge sets the value from v and reports (changed, accepted).
	merge func(p *logic.RuntimeParameters, v any) (bool, bool)
	load  func(p *logic.RuntimeParameters, prefs *store.Prefs)
	save  func(p *logic.RuntimeParameters, prefs *store.Prefs) error
}

// fields is the recognized key set in its stable wire order.
var fields = []field{
	durationField("telemetryIntervalMs", "tel_ms", func(p *logic.RuntimeParameters) *time.Duration { return &p.TelemetryInterval }),
	durationField("sensorReadIntervalMs", "sen_ms", func(p *logic.RuntimeParameters) *time.Duration { return &p.SensorReadInterval }),
	boolField("tempLightEnabled", "tmp_en", func(p *logic.RuntimeParameters) *bool { return &p.TempLightEnabled }),
	floatField("tempTooColdC", "tmp_c", func(p *logic.RuntimeParameters) *float64 { return &p.TempTooColdC }),
	durationField("minValveOnMs", "v_on", func(p *logic.RuntimeParameters) *time.Duration { return &p.MinValveOn }),
	durationField("minValveOffMs", "v_off", func(p *logic.RuntimeParameters) *time.Duration { return &p.MinValveOff }),
	boolField("self_light_enable", "slf_lgt", func(p *logic.RuntimeParameters) *bool { return &p.SelfLightEnable }),
	boolField("self_valve_enable", "slf_vlv", func(p *logic.RuntimeParameters) *bool { return &p.SelfValveEnable }),
	durationField("lightOnAfterMotionMs", "lgt_ms", func(p *logic.RuntimeParameters) *time.Duration { return &p.LightOnAfterMotion }),
	nonNegativeFloatField("tempHysteresisC", "tmp_hys", func(p *logic.RuntimeParameters) *float64 { return &p.TempHysteresisC }),
	durationField("wateringIntervalMs", "w_int", func(p *logic.RuntimeParameters) *time.Duration { return &p.WateringInterval }),
	durationField("wateringDurationMs", "w_dur", func(p *logic.RuntimeParameters) *time.Duration { return &p.WateringDuration }),
	intField("soilDryRaw", "soil_dry", func(p *logic.RuntimeParameters) *int { return &p.SoilDryRaw }),
	intField("soilWetRaw", "soil_wet", func(p *logic.RuntimeParameters) *int { return &p.SoilWetRaw }),
}

// number extracts a finite float from a decoded JSON value.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case int:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// milliseconds accepts a non-negative whole-number count that fits uint32.
func milliseconds(v any) (uint32, bool) {
	f, ok := number(v)
	if !ok || f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, false
	}
	return uint32(f), true
}

func durationField(key, pref string, ptr func(*logic.RuntimeParameters) *time.Duration) field {
	return field{
		key:  key,
		pref: pref,
		merge: func(p *logic.RuntimeParameters, v any) (bool, bool) {
			ms, ok := milliseconds(v)
			if !ok {
				return false, false
			}
			d := time.Duration(ms) * time.Millisecond
			dst := ptr(p)
			if *dst == d {
				return false, true
			}
			*dst = d
			return true, true
		},
		load: func(p *logic.RuntimeParameters, prefs *store.Prefs) {
			dst := ptr(p)
			*dst = time.Duration(prefs.Uint32(pref, uint32(dst.Milliseconds()))) * time.Millisecond
		},
		save: func(p *logic.RuntimeParameters, prefs *store.Prefs) error {
			return prefs.PutUint32(pref, uint32(ptr(p).Milliseconds()))
		},
	}
}

func boolField(key, pref string, ptr func(*logic.RuntimeParameters) *bool) field {
	return field{
		key:  key,
		pref: pref,
		merge: func(p *logic.RuntimeParameters, v any) (bool, bool) {
			b, ok := v.(bool)
			if !ok {
				return false, false
			}
			dst := ptr(p)
			if *dst == b {
				return false, true
			}
			*dst = b
			return true, true
		},
		load: func(p *logic.RuntimeParameters, prefs *store.Prefs) {
			dst := ptr(p)
			*dst = prefs.Bool(pref, *dst)
		},
		save: func(p *logic.RuntimeParameters, prefs *store.Prefs) error {
			return prefs.PutBool(pref, *ptr(p))
		},
	}
}

func floatField(key, pref string, ptr func(*logic.RuntimeParameters) *float64) field {
	return field{
		key:  key,
		pref: pref,
		merge: func(p *logic.RuntimeParameters, v any) (bool, bool) {
			f, ok := number(v)
			if !ok {
				return false, false
			}
			dst := ptr(p)
			if !math.IsNaN(*dst) && math.Abs(f-*dst) <= floatEpsilon {
				return false, true
			}
			*dst = f
			return true, true
		},
		load: func(p *logic.RuntimeParameters, prefs *store.Prefs) {
			dst := ptr(p)
			*dst = prefs.Float(pref, *dst)
		},
		save: func(p *logic.RuntimeParameters, prefs *store.Prefs) error {
			return prefs.PutFloat(pref, *ptr(p))
		},
	}
}

// nonNegativeFloatField is a floatField that skips negative values.
func nonNegativeFloatField(key, pref string, ptr func(*logic.RuntimeParameters) *float64) field {
	f := floatField(key, pref, ptr)
	merge := f.merge
	f.merge = func(p *logic.RuntimeParameters, v any) (bool, bool) {
		if n, ok := number(v); !ok || n < 0 {
			return false, false
		}
		return merge(p, v)
	}
	return f
}

func intField(key, pref string, ptr func(*logic.RuntimeParameters) *int) field {
	return field{
		key:  key,
		pref: pref,
		merge: func(p *logic.RuntimeParameters, v any) (bool, bool) {
			f, ok := number(v)
			if !ok || f < 0 || f > math.MaxInt32 {
				return false, false
			}
			n := int(f)
			dst := ptr(p)
			if *dst == n {
				return false, true
			}
			*dst = n
			return true, true
		},
		load: func(p *logic.RuntimeParameters, prefs *store.Prefs) {
			dst := ptr(p)
			*dst = prefs.Int(pref, *dst)
		},
		save: func(p *logic.RuntimeParameters, prefs *store.Prefs) error {
			return prefs.PutInt(pref, *ptr(p))
		},
	}
}
