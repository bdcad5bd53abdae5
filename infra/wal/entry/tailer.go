package entry

import (
	"errors"
	"io"
	"os"
)

// ErrNoRecord means the tailer has caught up with the writer.
var ErrNoRecord = errors.New("entry: no record available")

// Tailer reads the input log in order while it is being written, moving
// from one cycle to the next. It is not safe for concurrent use.
type Tailer struct {
	dir    string
	cycle  uint64
	file   *os.File
	offset int64
}

func NewTailer(dir string, fromCycle uint64) *Tailer {
	return &Tailer{dir: dir, cycle: fromCycle}
}

// Cycle is the cycle the next record will be read from, as far as the
// tailer knows.
func (t *Tailer) Cycle() uint64 {
	return t.cycle
}

// MoveToCycle repositions the tailer at the first record of cycle.
func (t *Tailer) MoveToCycle(cycle uint64) {
	t.closeFile()
	t.cycle = cycle
	t.offset = 0
}

// Next returns the next record, or ErrNoRecord when there is none yet.
func (t *Tailer) Next() (Record, error) {
	for {
		if t.file == nil {
			f, err := os.Open(segmentPath(t.dir, t.cycle))
			if err != nil {
				if !os.IsNotExist(err) {
					return Record{}, err
				}
				next, ok, err := t.laterCycle()
				if err != nil || !ok {
					return Record{}, errors.Join(ErrNoRecord, err)
				}
				t.MoveToCycle(next)
				continue
			}
			t.file = f
		}

		rec, n, err := readFrameAt(t.file, t.offset)
		if err == nil {
			t.offset += n
			rec.Cycle = t.cycle
			return rec, nil
		}
		if err != io.EOF && err != errIncomplete {
			return Record{}, err
		}

		next, ok, lerr := t.laterCycle()
		if lerr != nil || !ok {
			return Record{}, errors.Join(ErrNoRecord, lerr)
		}
		// The writer finishes a segment before it creates the next one,
		// so one more read settles whether this segment is done.
		if rec, n, err := readFrameAt(t.file, t.offset); err == nil {
			t.offset += n
			rec.Cycle = t.cycle
			return rec, nil
		}
		t.MoveToCycle(next)
	}
}

func (t *Tailer) laterCycle() (uint64, bool, error) {
	cycles, err := listCycles(t.dir)
	if err != nil {
		return 0, false, err
	}
	for _, c := range cycles {
		if c > t.cycle {
			return c, true, nil
		}
	}
	return 0, false, nil
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
	}
}

func (t *Tailer) Close() error {
	t.closeFile()
	return nil
}
