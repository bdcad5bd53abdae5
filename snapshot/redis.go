package snapshot

import (
	"context"
	"io"
	"strconv"

	"sequencer/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each checkpoint under its own key and indexes the
// cycles in a sorted set scored by cycle.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(cycle uint64) string {
	return s.prefix + "checkpoint:" + strconv.FormatUint(cycle, 10)
}

func (s *RedisStore) index() string {
	return s.prefix + "checkpoints"
}

// Save writes the checkpoint before indexing it, so the index never
// names a missing key.
func (s *RedisStore) Save(ctx context.Context, c Checkpoint) error {
	if err := s.client.Set(ctx, s.key(c.Cycle), encode(c), 0).Err(); err != nil {
		return errors.Wrapf(err, "save checkpoint %d", c.Cycle)
	}
	member := strconv.FormatUint(c.Cycle, 10)
	if err := s.client.ZAdd(ctx, s.index(), redis.Z{Score: float64(c.Cycle), Member: member}).Err(); err != nil {
		return errors.Wrapf(err, "index checkpoint %d", c.Cycle)
	}
	return nil
}

func (s *RedisStore) Latest(ctx context.Context, maxCycle uint64) (Checkpoint, error) {
	members, err := s.client.ZRevRangeByScore(ctx, s.index(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatUint(maxCycle, 10),
	}).Result()
	if err != nil {
		return Checkpoint{}, errors.Wrapf(err, "list checkpoints")
	}

	for _, m := range members {
		cycle, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		data, err := s.client.Get(ctx, s.key(cycle)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return Checkpoint{}, errors.Wrapf(err, "load checkpoint %d", cycle)
		}
		if c, err := decode(data); err == nil {
			return c, nil
		}
	}
	return Checkpoint{}, ErrNoCheckpoint
}

// Close closes the client if the store was given one it can close.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
