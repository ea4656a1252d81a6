//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives a relay through the Linux GPIO character device.
type RealOutput struct {
	mu        sync.Mutex
	line      *gpiocdev.Line
	activeLow bool
	on        bool
}

// NewRealOutput requests pin on chip as an output, initially logical OFF.
func NewRealOutput(chip string, pin int, activeLow bool) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(Level(false, activeLow)))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{line: line, activeLow: activeLow}, nil
}

// SetOn writes the logical state to the line.
func (o *RealOutput) SetOn(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.line.SetValue(Level(on, o.activeLow)); err != nil {
		return fmt.Errorf("set pin %d: %w", o.line.Offset(), err)
	}
	o.on = on
	return nil
}

// IsOn returns the last commanded logical state.
func (o *RealOutput) IsOn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.on
}

// Close drives the relay OFF and releases the line.
// Reconfigures the pin as an input with pull-down (matching Pi boot defaults)
// so the relay board does not float during reboot.
func (o *RealOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	if err := o.line.SetValue(Level(false, o.activeLow)); err != nil {
		errs = append(errs, fmt.Errorf("drive pin %d off: %w", o.line.Offset(), err))
	}
	o.on = false
	if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", o.line.Offset(), err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", o.line.Offset(), err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealInput reads a digital input line.
type RealInput struct {
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealInput requests pin on chip as an input. Buttons wired to GND use
// pullUp with activeLow; PIR modules drive the line high on motion.
func NewRealInput(chip string, pin int, pullUp, activeLow bool) (*RealInput, error) {
	bias := gpiocdev.WithPullDown
	if pullUp {
		bias = gpiocdev.WithPullUp
	}
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, bias)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", pin, err)
	}
	return &RealInput{line: line, activeLow: activeLow}, nil
}

// Active returns the logical state of the line.
func (i *RealInput) Active() (bool, error) {
	raw, err := i.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", i.line.Offset(), err)
	}
	return (raw == 1) != i.activeLow, nil
}

// Close releases the line.
func (i *RealInput) Close() error {
	if err := i.line.Close(); err != nil {
		return fmt.Errorf("close pin %d: %w", i.line.Offset(), err)
	}
	return nil
}
