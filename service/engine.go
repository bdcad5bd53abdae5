package service

import (
	"context"
	"errors"
	"runtime"
	"time"

	"sequencer/domain/message"
	"sequencer/domain/sequencer"
	"sequencer/infra/codec"
	"sequencer/infra/metrics"
	entrywal "sequencer/infra/wal/entry"
	exitwal "sequencer/infra/wal/exit"
	tracer "sequencer/pkg/errors"
	"sequencer/pkg/logger"
	"sequencer/snapshot"
)

// ErrReplayDivergence means re-processing a committed request produced
// a different response. The state can no longer be trusted.
var ErrReplayDivergence = errors.New("service: replayed response differs from committed response")

type EngineConfig struct {
	// StrictReplay compares every re-processed response with the one
	// already in the output log.
	StrictReplay bool
	// EcoMode sleeps PollInterval when the input log is drained instead
	// of spinning.
	EcoMode      bool
	PollInterval time.Duration
	// PruneInput deletes input cycles older than the one just
	// checkpointed.
	PruneInput bool
}

// Engine is the single-threaded processing loop.
type Engine struct {
	cfg         EngineConfig
	input       *entrywal.WAL
	output      *exitwal.Log
	checkpoints snapshot.Store
	processor   *sequencer.Processor
	logger      logger.Interface
	metrics     *metrics.Metrics

	tailer        *entrywal.Tailer
	lastCommitted uint64
	lastSeq       uint64
	cycle         uint64
	inCycle       bool
}

// NewEngine wires an engine. checkpoints may be nil to run without
// checkpoints; m may be nil.
func NewEngine(
	cfg EngineConfig,
	input *entrywal.WAL,
	output *exitwal.Log,
	checkpoints snapshot.Store,
	processor *sequencer.Processor,
	log logger.Interface,
	m *metrics.Metrics,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	return &Engine{
		cfg:         cfg,
		input:       input,
		output:      output,
		checkpoints: checkpoints,
		processor:   processor,
		logger:      log,
		metrics:     m,
	}
}

// LastSequence is the last input sequence the engine processed.
func (e *Engine) LastSequence() uint64 {
	return e.lastSeq
}

// Run recovers and then processes records until ctx is done or a
// record cannot be handled.
func (e *Engine) Run(ctx context.Context) error {
	if e.tailer == nil {
		if err := e.Recover(ctx); err != nil {
			return err
		}
	}
	defer e.tailer.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		progressed, err := e.Step(ctx)
		if err != nil {
			return err
		}
		if progressed {
			continue
		}
		if !e.cfg.EcoMode {
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.cfg.PollInterval):
		}
	}
}

// Step processes at most one record. It reports whether one was
// available.
func (e *Engine) Step(ctx context.Context) (bool, error) {
	rec, err := e.tailer.Next()
	if errors.Is(err, entrywal.ErrNoRecord) {
		return false, nil
	}
	if err != nil {
		return false, tracer.Wrapf(err, "read input cycle %d after seq %d", e.tailer.Cycle(), e.lastSeq)
	}
	if rec.Seq <= e.lastSeq {
		return false, tracer.Wrapf(entrywal.ErrCorrupt, "seq %d after %d", rec.Seq, e.lastSeq)
	}

	if e.inCycle && rec.Cycle != e.cycle {
		if err := e.checkpoint(ctx, e.cycle); err != nil {
			return false, err
		}
	}
	e.cycle, e.inCycle = rec.Cycle, true

	req, err := codec.DecodeRequest(rec.Data)
	if err != nil {
		req = message.Request{Type: message.Unparseable}
	}

	start := time.Now()
	resp := e.processor.Process(&req, rec.Seq)
	e.metrics.ObserveRequest(req.Type.String(), resp.Error.String(), rec.Seq, time.Since(start))
	e.lastSeq = rec.Seq

	if rec.Seq <= e.lastCommitted {
		e.metrics.Replayed()
		if e.cfg.StrictReplay && req.Type != message.GetState {
			return true, e.verify(rec.Seq, resp)
		}
		return true, nil
	}

	payload, err := codec.EncodeResponse(&resp)
	if err != nil {
		return false, tracer.Wrapf(err, "encode response %d", rec.Seq)
	}
	if err := e.output.Append(rec.Seq, payload); err != nil {
		return false, err
	}
	e.lastCommitted = rec.Seq
	return true, nil
}

func (e *Engine) verify(seq uint64, resp message.Response) error {
	stored, err := e.output.Get(seq)
	if err != nil {
		return tracer.Wrapf(err, "load committed response %d", seq)
	}
	committed, err := codec.DecodeResponse(stored)
	if err != nil {
		return tracer.Wrapf(err, "decode committed response %d", seq)
	}
	want, err := codec.Comparable(committed)
	if err != nil {
		return err
	}
	got, err := codec.Comparable(resp)
	if err != nil {
		return err
	}
	if string(want) != string(got) {
		e.logger.Warn("replay divergence",
			logger.NewField("sequence", seq),
			logger.NewField("committed", string(want)),
			logger.NewField("replayed", string(got)),
		)
		return tracer.Wrapf(ErrReplayDivergence, "sequence %d", seq)
	}
	return nil
}
