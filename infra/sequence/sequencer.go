// Package sequence hands out input log sequence numbers.
package sequence

import "sync/atomic"

// Sequencer issues strictly increasing sequence numbers starting after
// the last one found in the input log. Sequence 0 is never issued.
type Sequencer struct {
	last atomic.Uint64
}

// New resumes after last. A fresh log passes 0.
func New(last uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(last)
	return s
}

// Next reserves the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Rewind gives back the most recent number after a failed append so
// the log stays gapless. It is a no-op if another number was issued
// since.
func (s *Sequencer) Rewind(issued uint64) {
	s.last.CompareAndSwap(issued, issued-1)
}
