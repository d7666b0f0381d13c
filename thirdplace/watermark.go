package thirdplace

import "sync/atomic"

// Watermark is the time of the last processed batch. It never decreases.
type Watermark struct {
	v atomic.Int64
}

// IsNew reports whether a batch stamped t has not been processed yet.
func (w *Watermark) IsNew(t int64) bool {
	return t > w.v.Load()
}

// Advance raises the watermark to t. Lower values are ignored.
func (w *Watermark) Advance(t int64) {
	for {
		cur := w.v.Load()
		if t <= cur || w.v.CompareAndSwap(cur, t) {
			return
		}
	}
}

// Value returns the current watermark.
func (w *Watermark) Value() int64 {
	return w.v.Load()
}
