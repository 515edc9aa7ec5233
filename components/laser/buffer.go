package laser

import (
	"go.uber.org/atomic"
)

// Sample is one element of a scan.
type Sample struct {
	// Range is the distance in meters to the first qualifying hit, or the configured maximum
	// range on a miss.
	Range float64 `json:"range"`
	// Reflectance is 1 when the struck surface is bright and 0 otherwise.
	Reflectance float64 `json:"reflectance"`
}

// SampleBuffer holds the samples of the latest scan, ordered by increasing bearing, and a
// dirty flag that is set on every write and cleared only by a consumer.
//
// A SampleBuffer is owned by a single sensor and is not safe for concurrent writes. The dirty
// flag alone may be read and cleared from any goroutine.
type SampleBuffer struct {
	samples []Sample
	dirty   atomic.Bool
}

// Resize reallocates storage for n samples. Previous values are not preserved.
func (b *SampleBuffer) Resize(n int) {
	if n < 0 {
		n = 0
	}
	b.samples = make([]Sample, n)
}

// Samples returns the buffer's samples. The slice must be treated as read-only.
func (b *SampleBuffer) Samples() []Sample {
	return b.samples
}

// Len returns the number of samples held.
func (b *SampleBuffer) Len() int {
	return len(b.samples)
}

// Replace overwrites the buffer with a copy of samples and marks it dirty.
func (b *SampleBuffer) Replace(samples []Sample) {
	if len(b.samples) != len(samples) {
		b.Resize(len(samples))
	}
	copy(b.samples, samples)
	b.MarkDirty()
}

// IsDirty returns whether the buffer changed since a consumer last cleared it.
func (b *SampleBuffer) IsDirty() bool {
	return b.dirty.Load()
}

// ClearDirty is called by consumers once they have read the buffer.
func (b *SampleBuffer) ClearDirty() {
	b.dirty.Store(false)
}

// MarkDirty flags the buffer as changed.
func (b *SampleBuffer) MarkDirty() {
	b.dirty.Store(true)
}

// Release drops the buffer's storage.
func (b *SampleBuffer) Release() {
	b.samples = nil
}
