package sensor

// Fake is a test double that returns scripted readings.
// Each call to Read consumes the next reading; the last one repeats.
type Fake[T any] struct {
	Readings []Reading[T]
	index    int

	// Reads counts calls to Read.
	Reads int
}

// NewFake creates a Fake with the given readings.
func NewFake[T any](readings ...Reading[T]) *Fake[T] {
	return &Fake[T]{Readings: readings}
}

// Read returns the next scripted reading, or invalid if none are configured.
func (f *Fake[T]) Read() Reading[T] {
	f.Reads++
	if len(f.Readings) == 0 {
		return Reading[T]{}
	}
	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r
}

// Set replaces the script with a single held reading.
func (f *Fake[T]) Set(r Reading[T]) {
	f.Readings = []Reading[T]{r}
	f.index = 0
}
