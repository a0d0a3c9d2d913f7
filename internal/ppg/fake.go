package ppg

import "errors"

// FakeSource is a test double that returns scripted samples.
type FakeSource struct {
	// Samples contains the scripted values to return. Each call to
	// Read() consumes the next sample; the last one repeats once the
	// script is exhausted.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(samples []Sample) *FakeSource {
	return &FakeSource{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeSource) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script to the beginning.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Closed = false
}
