// Package progress coarsens byte-level transfer counters into 5% steps so
// subscribers see at most ~20 updates per transfer instead of one per chunk.
package progress

// Quantizer tracks the last emitted percentage for a single transfer.
// The zero value is ready to use. Not safe for concurrent use.
type Quantizer struct {
	last int
	done bool
}

// Update folds a new byte counter into the quantizer. It returns the
// percentage to publish and whether anything should be published at all.
//
// Emissions are non-decreasing multiples of 5. The terminal value is always
// exactly 100 and fires at most once; after it the quantizer stays silent.
// A zero or unknown total never emits.
func (q *Quantizer) Update(transferred, total int64) (int, bool) {
	if q.done || total <= 0 {
		return 0, false
	}

	raw := int(transferred * 100 / total)
	if raw >= 100 {
		q.last = 100
		q.done = true
		return 100, true
	}

	step := raw / 5 * 5
	if step >= q.last+5 {
		q.last = step
		return step, true
	}
	return 0, false
}

// Reset returns the quantizer to its initial state so it can track a fresh
// transfer, e.g. a retried download.
func (q *Quantizer) Reset() {
	q.last = 0
	q.done = false
}
