package entry

import (
	"errors"
	"fmt"
)

type ReplayHandler func(Record) error

// Replay reads every record in dir from the oldest cycle on and stops
// at the end of the log. Sequence numbers must be strictly increasing.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	cycles, err := listCycles(dir)
	if err != nil || len(cycles) == 0 {
		return 0, err
	}

	t := NewTailer(dir, cycles[0])
	defer t.Close()

	for {
		rec, err := t.Next()
		if errors.Is(err, ErrNoRecord) {
			return lastSeq, nil
		}
		if err != nil {
			return lastSeq, err
		}

		if rec.Seq <= lastSeq {
			return lastSeq, fmt.Errorf("non-monotonic seq %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq

		if err := fn(rec); err != nil {
			return lastSeq, err
		}
	}
}
