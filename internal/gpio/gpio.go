// Package gpio provides relay outputs and digital inputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a relay. SetOn takes the logical state; the electrical level
// depends on the polarity the output was created with.
type Output interface {
	SetOn(on bool) error
	IsOn() bool
	Close() error
}

// Input reads a digital line.
type Input interface {
	// Active returns the logical state: true when the line is asserted
	// (pressed button, motion detected), after polarity is applied.
	Active() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinLightRelay = 26
	DefaultPinValveRelay = 25
	DefaultPinButton     = 14
	DefaultPinMotion     = 27
	DefaultChip          = "gpiochip0"
)

// Level returns the electrical level for a logical state.
func Level(on, activeLow bool) int {
	if on != activeLow {
		return 1
	}
	return 0
}
