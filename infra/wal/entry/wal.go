package entry

import (
	"os"
	"sync"
	"time"

	"sequencer/infra/sequence"
	"sequencer/pkg/errors"
)

type Config struct {
	Dir string
	// SegmentSize and SegmentDuration close the current cycle once
	// either is exceeded. Zero disables the respective limit.
	SegmentSize     int64
	SegmentDuration time.Duration
	// Fsync syncs every append before it is acknowledged.
	Fsync bool
}

// WAL is the append side of the input log. Appends are serialized; the
// sequence number of a record is assigned under the same lock that
// writes it, so sequence order is file order.
type WAL struct {
	mu sync.Mutex

	dir             string
	segmentSize     int64
	segmentDuration time.Duration
	fsync           bool
	now             func() time.Time

	seq        *sequence.Sequencer
	current    *segment
	lastRotate time.Time
}

// Open resumes the log in cfg.Dir. A torn frame at the end of the last
// segment, left by a crash mid-write, is cut off. Writing continues in
// a new cycle unless the last segment is empty.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create input log dir %s", cfg.Dir)
	}

	cycles, err := listCycles(cfg.Dir)
	if err != nil {
		return nil, err
	}

	var (
		lastSeq   uint64
		nextCycle uint64
	)
	if len(cycles) > 0 {
		last := cycles[len(cycles)-1]
		seq, valid, err := scanSegment(segmentPath(cfg.Dir, last))
		if err != nil {
			return nil, errors.Wrapf(err, "scan segment %d", last)
		}
		if err := os.Truncate(segmentPath(cfg.Dir, last), valid); err != nil {
			return nil, errors.Wrapf(err, "truncate segment %d", last)
		}
		nextCycle = last + 1
		if valid == 0 {
			nextCycle = last
		}
		lastSeq = seq
		for i := len(cycles) - 2; lastSeq == 0 && i >= 0; i-- {
			if lastSeq, _, err = scanSegment(segmentPath(cfg.Dir, cycles[i])); err != nil {
				return nil, errors.Wrapf(err, "scan segment %d", cycles[i])
			}
		}
	}

	seg, err := openSegment(cfg.Dir, nextCycle)
	if err != nil {
		return nil, errors.Wrapf(err, "open segment %d", nextCycle)
	}

	return &WAL{
		dir:             cfg.Dir,
		segmentSize:     cfg.SegmentSize,
		segmentDuration: cfg.SegmentDuration,
		fsync:           cfg.Fsync,
		now:             time.Now,
		seq:             sequence.New(lastSeq),
		current:         seg,
		lastRotate:      time.Now(),
	}, nil
}

// Append writes data as the next record and returns it with its
// sequence number and cycle filled in.
func (w *WAL) Append(t RecordType, data []byte) (Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shouldRotate() {
		if err := w.rotate(); err != nil {
			return Record{}, err
		}
	}

	rec := Record{Type: t, Seq: w.seq.Next(), Time: w.now().UnixNano(), Data: data, Cycle: w.current.cycle}
	if err := w.current.append(encodeFrame(rec)); err != nil {
		w.seq.Rewind(rec.Seq)
		return Record{}, errors.Wrapf(err, "append seq %d", rec.Seq)
	}
	if w.fsync {
		if err := w.current.sync(); err != nil {
			return Record{}, errors.Wrapf(err, "sync seq %d", rec.Seq)
		}
	}
	return rec, nil
}

func (w *WAL) shouldRotate() bool {
	if w.current.offset == 0 {
		return false
	}
	if w.segmentSize > 0 && w.current.offset >= w.segmentSize {
		return true
	}
	return w.segmentDuration > 0 && w.now().Sub(w.lastRotate) >= w.segmentDuration
}

func (w *WAL) rotate() error {
	if err := w.current.sync(); err != nil {
		return err
	}
	_ = w.current.close()

	seg, err := openSegment(w.dir, w.current.cycle+1)
	if err != nil {
		return errors.Wrapf(err, "open segment %d", w.current.cycle+1)
	}
	w.current = seg
	w.lastRotate = w.now()
	return nil
}

// LastSequence is the sequence of the most recent record.
func (w *WAL) LastSequence() uint64 {
	return w.seq.Current()
}

// Cycle is the cycle currently being written.
func (w *WAL) Cycle() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.cycle
}

func (w *WAL) Dir() string {
	return w.dir
}

// Cycles lists the cycles on disk in ascending order.
func (w *WAL) Cycles() ([]uint64, error) {
	return listCycles(w.dir)
}

// TruncateBefore deletes every segment older than cycle. The segment
// being written is never deleted.
func (w *WAL) TruncateBefore(cycle uint64) error {
	w.mu.Lock()
	current := w.current.cycle
	w.mu.Unlock()

	cycles, err := listCycles(w.dir)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		if c >= cycle || c >= current {
			break
		}
		if err := os.Remove(segmentPath(w.dir, c)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove segment %d", c)
		}
	}
	return nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.current.sync(); err != nil {
		return err
	}
	return w.current.close()
}
