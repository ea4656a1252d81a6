//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chip string, pin int, activeLow bool) (*RealOutput, error) {
	return nil, errUnsupported
}

// SetOn is not implemented on non-Linux platforms.
func (o *RealOutput) SetOn(on bool) error { return errUnsupported }

// IsOn always reports false on non-Linux platforms.
func (o *RealOutput) IsOn() bool { return false }

// Close is a no-op on non-Linux platforms.
func (o *RealOutput) Close() error { return nil }

// RealInput is not available on non-Linux platforms.
type RealInput struct{}

// NewRealInput returns an error on non-Linux platforms.
func NewRealInput(chip string, pin int, pullUp, activeLow bool) (*RealInput, error) {
	return nil, errUnsupported
}

// Active is not implemented on non-Linux platforms.
func (i *RealInput) Active() (bool, error) { return false, errUnsupported }

// Close is a no-op on non-Linux platforms.
func (i *RealInput) Close() error { return nil }
