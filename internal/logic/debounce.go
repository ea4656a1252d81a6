package logic

import "time"

// DefaultDebounce is the settle time for the manual push button.
const DefaultDebounce = 30 * time.Millisecond

// Debouncer turns a noisy pressed/released signal into single press edges.
type Debouncer struct {
	window time.Duration

	// Current stable (debounced) level
	stable bool
	// Last raw level seen and when it last changed
	lastRaw    bool
	lastChange time.Time
	baselined  bool
}

// NewDebouncer creates a Debouncer with the given settle window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Update feeds one raw sample (true = pressed) and reports whether a press
// edge (released -> pressed) became stable on this sample.
// The first sample establishes the baseline and never produces an edge.
func (d *Debouncer) Update(pressed bool, now time.Time) bool {
	if !d.baselined {
		d.stable = pressed
		d.lastRaw = pressed
		d.lastChange = now
		d.baselined = true
		return false
	}

	if pressed != d.lastRaw {
		d.lastRaw = pressed
		d.lastChange = now
	}

	if pressed == d.stable || now.Sub(d.lastChange) < d.window {
		return false
	}

	wasPressed := d.stable
	d.stable = pressed
	return !wasPressed && pressed
}

// Pressed returns the current debounced level.
func (d *Debouncer) Pressed() bool {
	return d.stable
}
