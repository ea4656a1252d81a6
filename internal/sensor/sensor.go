// Package sensor adapts physical sensors to a single read capability.
// A failed read yields an invalid Reading rather than an error: the control
// cycle treats "no data" as a normal input.
package sensor

import "github.com/sweeney/garden-controller/internal/logic"

// Reading is an optional sample.
type Reading[T any] struct {
	Valid bool
	Value T
}

// Valid wraps v as a valid reading.
func Valid[T any](v T) Reading[T] {
	return Reading[T]{Valid: true, Value: v}
}

// Sensor is anything that can be sampled.
type Sensor[T any] interface {
	Read() Reading[T]
}

// Func adapts a function to a Sensor.
type Func[T any] func() Reading[T]

// Read calls f.
func (f Func[T]) Read() Reading[T] { return f() }

// Absent is a sensor that is not fitted. It always reads invalid.
type Absent[T any] struct{}

// Read returns an invalid reading.
func (Absent[T]) Read() Reading[T] { return Reading[T]{} }

// Climate pairs a temperature and a humidity sensor.
type Climate struct {
	Temperature Sensor[float64]
	Humidity    Sensor[float64]
}

// Read samples both channels. The result is valid only if both are, the
// way a DHT-class sensor fails as a unit.
func (c Climate) Read() logic.Climate {
	t := c.Temperature.Read()
	h := c.Humidity.Read()
	if !t.Valid || !h.Valid {
		return logic.Climate{}
	}
	return logic.Climate{OK: true, TemperatureC: t.Value, HumidityPct: h.Value}
}

// Soil converts a raw ADC sensor into a soil reading.
func Soil(s Sensor[float64]) logic.SoilReading {
	r := s.Read()
	if !r.Valid {
		return logic.SoilReading{}
	}
	return logic.SoilReading{OK: true, Raw: int(r.Value)}
}
