package service

import (
	"context"

	"sequencer/infra/codec"
	tracer "sequencer/pkg/errors"
	"sequencer/pkg/logger"
	"sequencer/snapshot"
)

// checkpoint persists the state as of the end of cycle. It runs on the
// engine goroutine between two records, so the state is quiescent.
func (e *Engine) checkpoint(ctx context.Context, cycle uint64) error {
	if e.checkpoints == nil {
		return nil
	}

	dump := e.processor.State().Dump()
	data, err := codec.EncodeState(&dump)
	if err != nil {
		return tracer.Wrapf(err, "encode checkpoint %d", cycle)
	}
	if err := e.checkpoints.Save(ctx, snapshot.Checkpoint{Cycle: cycle, Sequence: e.lastSeq, State: data}); err != nil {
		return err
	}
	e.metrics.CheckpointWritten()
	e.logger.Debug("checkpoint saved",
		logger.NewField("cycle", cycle),
		logger.NewField("sequence", e.lastSeq),
		logger.NewField("bytes", len(data)),
	)

	if e.cfg.PruneInput {
		e.prune(cycle)
	}
	return nil
}

// prune drops input segments and checkpoints older than cycle. Failures
// are logged; the next checkpoint retries.
func (e *Engine) prune(cycle uint64) {
	if err := e.input.TruncateBefore(cycle); err != nil {
		e.logger.Error(err, logger.NewField("cycle", cycle))
		return
	}
	if p, ok := e.checkpoints.(snapshot.Pruner); ok {
		if err := p.DeleteBefore(cycle); err != nil {
			e.logger.Error(err, logger.NewField("cycle", cycle))
			return
		}
	}
	e.logger.Debug("pruned",
		logger.NewField("before_cycle", cycle),
		logger.NewField("writing_cycle", e.input.Cycle()),
	)
}
