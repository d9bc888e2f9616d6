package fault

import "sync/atomic"

// Tally counts failures per Kind. Safe for concurrent use; the zero value
// is ready to use.
type Tally struct {
	kinds       [kindCount]atomic.Int64
	circuitOpen atomic.Int64
	exhausted   atomic.Int64
}

// Summary is a point-in-time copy of a Tally.
type Summary struct {
	ByKind      map[Kind]int `json:"by_kind"`
	CircuitOpen int          `json:"circuit_open"`
	Exhausted   int          `json:"exhausted"`
	Total       int          `json:"total"`
}

// Record counts one failure. Circuit-open fast-fails are counted apart
// from the kinds so that refusals never look like remote errors.
func (t *Tally) Record(f *Failure) {
	if f == nil {
		return
	}
	if f.IsCircuitOpen() {
		t.circuitOpen.Add(1)
		return
	}
	if int(f.Kind) < kindCount {
		t.kinds[f.Kind].Add(1)
	}
	if f.Exhausted {
		t.exhausted.Add(1)
	}
}

// Snapshot returns the current counts.
func (t *Tally) Snapshot() Summary {
	s := Summary{ByKind: make(map[Kind]int, kindCount)}
	for i := range t.kinds {
		n := int(t.kinds[i].Load())
		if n == 0 {
			continue
		}
		s.ByKind[Kind(i)] = n
		s.Total += n
	}
	s.CircuitOpen = int(t.circuitOpen.Load())
	s.Exhausted = int(t.exhausted.Load())
	s.Total += s.CircuitOpen
	return s
}

// Reset zeroes every counter.
func (t *Tally) Reset() {
	for i := range t.kinds {
		t.kinds[i].Store(0)
	}
	t.circuitOpen.Store(0)
	t.exhausted.Store(0)
}
