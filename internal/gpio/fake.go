package gpio

import (
	"errors"
	"sync"
)

// FakeOutput is a test double that records every write.
type FakeOutput struct {
	mu sync.Mutex
	on bool

	// Writes counts SetOn calls, including unchanged values.
	Writes int

	// History contains every value passed to SetOn.
	History []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetOn and the state is not changed.
	SetError error
}

// NewFakeOutput creates a FakeOutput in the OFF state.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// SetOn records the write.
func (f *FakeOutput) SetOn(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	f.History = append(f.History, on)
	if f.SetError != nil {
		return f.SetError
	}
	f.on = on
	return nil
}

// IsOn returns the last successfully written state.
func (f *FakeOutput) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Close drives the output OFF and marks it closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.Closed = true
	return nil
}

// FakeInput is a test double that returns scripted logical levels.
type FakeInput struct {
	// Samples contains scripted levels to return.
	// Each call to Active() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Active()
	ReadError error
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples ...bool) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Active returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInput) Active() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Set replaces the script with a single held level.
func (f *FakeInput) Set(active bool) {
	f.Samples = []bool{active}
	f.index = 0
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.Closed = true
	return nil
}
