package gpio

import (
	"fmt"
	"time"

	"github.com/sweeney/garden-controller/internal/logic"
)

// Button is a debounced push button on a digital input.
type Button struct {
	in  Input
	deb *logic.Debouncer
}

// NewButton wraps in with a debouncer using the given settle window.
func NewButton(in Input, window time.Duration) *Button {
	return &Button{in: in, deb: logic.NewDebouncer(window)}
}

// Poll samples the input once and reports whether a debounced press
// occurred. A read error produces no press.
func (b *Button) Poll(now time.Time) (bool, error) {
	active, err := b.in.Active()
	if err != nil {
		return false, fmt.Errorf("poll button: %w", err)
	}
	return b.deb.Update(active, now), nil
}

// Close releases the underlying input.
func (b *Button) Close() error {
	return b.in.Close()
}
