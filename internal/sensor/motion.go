package sensor

import (
	"github.com/rs/zerolog/log"

	"github.com/sweeney/garden-controller/internal/gpio"
)

// Motion reads a PIR module on a digital input.
type Motion struct {
	in gpio.Input
}

// NewMotion wraps a GPIO input.
func NewMotion(in gpio.Input) *Motion {
	return &Motion{in: in}
}

// Read returns the current motion level.
func (m *Motion) Read() Reading[bool] {
	active, err := m.in.Active()
	if err != nil {
		log.Debug().Err(err).Msg("motion read failed")
		return Reading[bool]{}
	}
	return Valid(active)
}
