package service

import (
	"context"
	"errors"

	"sequencer/domain/sequencer"
	"sequencer/infra/codec"
	entrywal "sequencer/infra/wal/entry"
	tracer "sequencer/pkg/errors"
	"sequencer/pkg/logger"
	"sequencer/snapshot"
)

/*
Recover positions the engine before it processes anything.

- The newest intact checkpoint at or before the cycle preceding the
  last input cycle is loaded; the last cycle may still be growing.
- The tailer starts at the cycle after that checkpoint, or at the first
  cycle on disk without one.
- Records at or below the last committed output sequence are processed
  again but not re-committed.
*/
func (e *Engine) Recover(ctx context.Context) error {
	cycles, err := e.input.Cycles()
	if err != nil {
		return tracer.Wrapf(err, "list input cycles")
	}
	e.lastCommitted, err = e.output.LastSequence()
	if err != nil {
		return tracer.Wrapf(err, "read last committed sequence")
	}

	var from uint64
	if len(cycles) > 0 {
		from = cycles[0]
	}

	if e.checkpoints != nil && len(cycles) > 0 && cycles[len(cycles)-1] > 0 {
		cp, err := e.checkpoints.Latest(ctx, cycles[len(cycles)-1]-1)
		switch {
		case err == nil:
			if err := e.restore(cp); err != nil {
				return err
			}
			from = cp.Cycle + 1
		case errors.Is(err, snapshot.ErrNoCheckpoint):
		default:
			return tracer.Wrapf(err, "load checkpoint")
		}
	}

	e.tailer = entrywal.NewTailer(e.input.Dir(), from)
	e.logger.Info("recovered",
		logger.NewField("from_cycle", from),
		logger.NewField("last_sequence", e.lastSeq),
		logger.NewField("last_committed", e.lastCommitted),
	)
	return nil
}

func (e *Engine) restore(cp snapshot.Checkpoint) error {
	dump, err := codec.DecodeState(cp.State)
	if err != nil {
		return tracer.Wrapf(err, "decode checkpoint %d", cp.Cycle)
	}
	state, err := sequencer.RestoreState(dump)
	if err != nil {
		return tracer.Wrapf(err, "restore checkpoint %d", cp.Cycle)
	}
	e.processor.Restore(state)
	e.lastSeq = cp.Sequence
	e.logger.Info("checkpoint loaded",
		logger.NewField("cycle", cp.Cycle),
		logger.NewField("sequence", cp.Sequence),
	)
	return nil
}
