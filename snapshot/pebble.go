package snapshot

import (
	"context"
	"fmt"

	"sequencer/pkg/errors"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps checkpoints in a local pebble database under
// checkpoint/<cycle> keys.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.NewTracer("open checkpoint store").Wrap(err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Save(_ context.Context, c Checkpoint) error {
	if err := s.db.Set(checkpointKey(c.Cycle), encode(c), pebble.Sync); err != nil {
		return errors.Wrapf(err, "save checkpoint %d", c.Cycle)
	}
	return nil
}

func (s *PebbleStore) Latest(_ context.Context, maxCycle uint64) (Checkpoint, error) {
	upper := checkpointKey(maxCycle + 1)
	if maxCycle == ^uint64(0) {
		upper = []byte("checkpoint/~")
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("checkpoint/"),
		UpperBound: upper,
	})
	if err != nil {
		return Checkpoint{}, err
	}
	defer iter.Close()

	for iter.Last(); iter.Valid(); iter.Prev() {
		c, err := decode(iter.Value())
		if err != nil {
			continue
		}
		return c, nil
	}
	if err := iter.Error(); err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{}, ErrNoCheckpoint
}

// DeleteBefore removes checkpoints older than cycle.
func (s *PebbleStore) DeleteBefore(cycle uint64) error {
	return s.db.DeleteRange([]byte("checkpoint/"), checkpointKey(cycle), pebble.Sync)
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func checkpointKey(cycle uint64) []byte {
	return []byte(fmt.Sprintf("checkpoint/%020d", cycle))
}
