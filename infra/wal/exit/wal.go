package exit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	tracer "sequencer/pkg/errors"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned for a sequence that has no response yet.
var ErrNotFound = errors.New("exit: response not found")

// -------------------- Cursor --------------------

// Cursor tracks how far a downstream consumer of the log has got.
type Cursor struct {
	Sequence    uint64
	Retries     uint32
	LastAttempt int64
}

// binary encoding: [sequence:8][retries:4][lastAttempt:8]
func encodeCursor(c Cursor) []byte {
	buf := make([]byte, 8+4+8)
	binary.BigEndian.PutUint64(buf[0:8], c.Sequence)
	binary.BigEndian.PutUint32(buf[8:12], c.Retries)
	binary.BigEndian.PutUint64(buf[12:20], uint64(c.LastAttempt))
	return buf
}

func decodeCursor(b []byte) (Cursor, error) {
	if len(b) != 20 {
		return Cursor{}, errors.New("exit: invalid cursor length")
	}
	return Cursor{
		Sequence:    binary.BigEndian.Uint64(b[0:8]),
		Retries:     binary.BigEndian.Uint32(b[8:12]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[12:20])),
	}, nil
}

// -------------------- Log --------------------

// Log is the output log: one encoded response per input sequence. A
// response written here is committed; recovery never processes its
// sequence as new again.
type Log struct {
	db   *pebble.DB
	sync bool
}

type Options struct {
	// NoSync skips the fsync on each write. For tests and tooling only.
	NoSync bool
	// ReadOnly opens an existing log for inspection.
	ReadOnly bool
}

func Open(dir string, opts Options) (*Log, error) {
	db, err := pebble.Open(dir, &pebble.Options{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, tracer.NewTracer("open output log").Wrap(err)
	}
	return &Log{db: db, sync: !opts.NoSync}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) writeOpts() *pebble.WriteOptions {
	if l.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Append stores the response for seq.
func (l *Log) Append(seq uint64, payload []byte) error {
	if err := l.db.Set(responseKey(seq), payload, l.writeOpts()); err != nil {
		return tracer.Wrapf(err, "store response %d", seq)
	}
	return nil
}

// Get returns a copy of the response stored for seq.
func (l *Log) Get(seq uint64) ([]byte, error) {
	val, closer, err := l.db.Get(responseKey(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, tracer.Wrapf(err, "load response %d", seq)
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// LastSequence returns the highest committed sequence, or 0 for an
// empty log.
func (l *Log) LastSequence() (uint64, error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(responsePrefix),
		UpperBound: []byte(responseUpper),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseResponseKey(iter.Key())
}

// -------------------- Scan --------------------

// Scan calls fn for every response from seq on, in sequence order,
// until fn returns an error or limit responses were visited. A limit
// of 0 means no limit.
func (l *Log) Scan(from uint64, limit int, fn func(seq uint64, payload []byte) error) error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: responseKey(from),
		UpperBound: []byte(responseUpper),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseResponseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, iter.Value()); err != nil {
			return err
		}
		if n++; limit > 0 && n >= limit {
			break
		}
	}
	return iter.Error()
}

// -------------------- Cursors --------------------

// Cursor loads the named cursor; a missing cursor starts at zero.
func (l *Log) Cursor(name string) (Cursor, error) {
	val, closer, err := l.db.Get(cursorKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return Cursor{}, nil
	}
	if err != nil {
		return Cursor{}, err
	}
	defer closer.Close()
	return decodeCursor(val)
}

func (l *Log) SaveCursor(name string, c Cursor) error {
	if c.LastAttempt == 0 {
		c.LastAttempt = time.Now().UnixNano()
	}
	return l.db.Set(cursorKey(name), encodeCursor(c), l.writeOpts())
}

// -------------------- Helpers --------------------

const (
	responsePrefix = "response/"
	responseUpper  = "response/~"
)

func responseKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", responsePrefix, seq))
}

func parseResponseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(b[len(responsePrefix):]), "%d", &seq)
	return seq, err
}

func cursorKey(name string) []byte {
	return []byte("cursor/" + name)
}
