package logic

import (
	"errors"
	"time"
)

// fakeRelay records every write so tests can assert write-through.
type fakeRelay struct {
	on     bool
	writes int
	err    error
}

func (r *fakeRelay) SetOn(on bool) error {
	r.writes++
	if r.err != nil {
		return r.err
	}
	r.on = on
	return nil
}

func (r *fakeRelay) IsOn() bool { return r.on }

var errRelay = errors.New("relay fault")

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func warm(c float64) Climate { return Climate{OK: true, TemperatureC: c, HumidityPct: 50} }
