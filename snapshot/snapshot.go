package snapshot

import (
	"context"
	"errors"
)

var (
	ErrNoCheckpoint = errors.New("snapshot: no checkpoint")
	ErrCorrupt      = errors.New("snapshot: checkpoint digest mismatch")
)

// Checkpoint is the state after every record of Cycle was processed.
// Sequence is the last input sequence it includes and State the encoded
// state dump.
type Checkpoint struct {
	Cycle    uint64
	Sequence uint64
	State    []byte
}

type Store interface {
	Save(ctx context.Context, c Checkpoint) error
	// Latest returns the newest intact checkpoint with a cycle at or
	// below maxCycle, or ErrNoCheckpoint.
	Latest(ctx context.Context, maxCycle uint64) (Checkpoint, error)
	Close() error
}

// Pruner is implemented by stores that can drop checkpoints older than
// cycle.
type Pruner interface {
	DeleteBefore(cycle uint64) error
}
