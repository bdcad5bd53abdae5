package broadcaster

import (
	"context"
	"errors"
	"time"

	exitwal "sequencer/infra/wal/exit"
	"sequencer/infra/metrics"
	"sequencer/pkg/logger"
)

// Publisher delivers one committed response downstream.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// Broadcaster forwards the output log to a Publisher in sequence
// order. Progress is kept in a cursor inside the output log, so after a
// restart publishing resumes at the first unacknowledged response.
// Delivery is at least once.
type Broadcaster struct {
	output    *exitwal.Log
	publisher Publisher
	cursor    string
	key       []byte
	interval  time.Duration
	batch     int
	logger    logger.Interface
	metrics   *metrics.Metrics
}

type Config struct {
	// Cursor names the progress record; one per destination.
	Cursor   string
	Key      string
	Interval time.Duration
	Batch    int
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(output *exitwal.Log, publisher Publisher, cfg Config, log logger.Interface, m *metrics.Metrics) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 512
	}
	if cfg.Cursor == "" {
		cfg.Cursor = "broadcast"
	}
	return &Broadcaster{
		output:    output,
		publisher: publisher,
		cursor:    cfg.Cursor,
		key:       []byte(cfg.Key),
		interval:  cfg.Interval,
		batch:     cfg.Batch,
		logger:    log,
		metrics:   m,
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run publishes until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.logger.Info("broadcaster started", logger.NewField("cursor", b.cursor))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := b.PublishPending(ctx); err != nil && ctx.Err() == nil {
				b.logger.Warn("publish failed, retrying", logger.NewField("error", err.Error()))
			}
		}
	}
}

var errStop = errors.New("stop")

// PublishPending publishes up to one batch of responses after the
// cursor and returns how many went out. A failed publish stops the
// batch and is counted on the cursor; the same response is retried
// next time.
func (b *Broadcaster) PublishPending(ctx context.Context) (int, error) {
	cur, err := b.output.Cursor(b.cursor)
	if err != nil {
		return 0, err
	}

	sent := 0
	var publishErr error
	err = b.output.Scan(cur.Sequence+1, b.batch, func(seq uint64, payload []byte) error {
		if err := b.publisher.Publish(ctx, b.key, payload); err != nil {
			publishErr = err
			return errStop
		}
		cur = exitwal.Cursor{Sequence: seq, LastAttempt: time.Now().UnixNano()}
		sent++
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return sent, err
	}

	if publishErr != nil {
		b.metrics.BroadcastFailed()
		cur.Retries++
		cur.LastAttempt = time.Now().UnixNano()
	}
	if sent > 0 || publishErr != nil {
		if err := b.output.SaveCursor(b.cursor, cur); err != nil {
			return sent, err
		}
	}

	if last, err := b.output.LastSequence(); err == nil && last >= cur.Sequence {
		b.metrics.BroadcastLag(last - cur.Sequence)
	}
	return sent, publishErr
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
