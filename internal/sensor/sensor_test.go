package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/garden-controller/internal/gpio"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestIIOChannelScales(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "in_temp_input", "21500\n")

	c := &IIOChannel{Path: p, Scale: 0.001}
	r := c.Read()
	if !r.Valid {
		t.Fatal("expected valid reading")
	}
	if r.Value < 21.499 || r.Value > 21.501 {
		t.Errorf("expected 21.5, got %v", r.Value)
	}
}

func TestIIOChannelInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope")},
		{"garbage", writeFile(t, dir, "garbage", "abc")},
		{"nan", writeFile(t, dir, "nan", "NaN")},
		{"empty", writeFile(t, dir, "empty", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &IIOChannel{Path: tt.path, Scale: 1}
			if r := c.Read(); r.Valid {
				t.Errorf("expected invalid reading, got %+v", r)
			}
		})
	}
}

func TestNewIIOChannelDefaultScale(t *testing.T) {
	c := NewIIOChannel("iio:device0", "in_voltage0_raw", 0)
	if c.Scale != 1 {
		t.Errorf("expected scale 1, got %v", c.Scale)
	}
	want := filepath.Join(IIODevicesDir, "iio:device0", "in_voltage0_raw")
	if c.Path != want {
		t.Errorf("expected path %s, got %s", want, c.Path)
	}
}

func TestClimateRequiresBoth(t *testing.T) {
	tests := []struct {
		name   string
		temp   Reading[float64]
		hum    Reading[float64]
		wantOK bool
	}{
		{"both valid", Valid(15.0), Valid(60.0), true},
		{"temp invalid", Reading[float64]{}, Valid(60.0), false},
		{"humidity invalid", Valid(15.0), Reading[float64]{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Climate{Temperature: NewFake(tt.temp), Humidity: NewFake(tt.hum)}
			got := c.Read()
			if got.OK != tt.wantOK {
				t.Fatalf("expected OK=%v, got %+v", tt.wantOK, got)
			}
			if got.OK && (got.TemperatureC != 15 || got.HumidityPct != 60) {
				t.Errorf("unexpected values: %+v", got)
			}
		})
	}
}

func TestSoil(t *testing.T) {
	if s := Soil(NewFake(Valid(1799.6))); !s.OK || s.Raw != 1799 {
		t.Errorf("expected raw 1799, got %+v", s)
	}
	if s := Soil(Absent[float64]{}); s.OK {
		t.Errorf("absent sensor must be invalid, got %+v", s)
	}
}

func TestMotion(t *testing.T) {
	in := gpio.NewFakeInput(false, true)
	m := NewMotion(in)

	if r := m.Read(); !r.Valid || r.Value {
		t.Errorf("expected valid no-motion, got %+v", r)
	}
	if r := m.Read(); !r.Valid || !r.Value {
		t.Errorf("expected valid motion, got %+v", r)
	}

	in.ReadError = errors.New("line gone")
	if r := m.Read(); r.Valid {
		t.Errorf("expected invalid on error, got %+v", r)
	}
}

func TestFakeRepeatsLast(t *testing.T) {
	f := NewFake(Valid(1), Valid(2))
	f.Read()
	f.Read()
	if r := f.Read(); r.Value != 2 {
		t.Errorf("expected last reading to repeat, got %v", r.Value)
	}
	if f.Reads != 3 {
		t.Errorf("expected 3 reads, got %d", f.Reads)
	}
}
