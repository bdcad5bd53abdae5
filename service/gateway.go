package service

import (
	"context"
	"errors"
	"time"

	"sequencer/domain/message"
	"sequencer/infra/codec"
	"sequencer/infra/metrics"
	entrywal "sequencer/infra/wal/entry"
	exitwal "sequencer/infra/wal/exit"
	tracer "sequencer/pkg/errors"
	"sequencer/pkg/logger"

	"github.com/google/uuid"
)

type Appender interface {
	Append(t entrywal.RecordType, data []byte) (entrywal.Record, error)
}

type ResponseReader interface {
	Get(seq uint64) ([]byte, error)
}

// Gateway submits requests to the input log and waits for the engine
// to commit the matching response.
type Gateway struct {
	input   Appender
	output  ResponseReader
	poll    time.Duration
	logger  logger.Interface
	metrics *metrics.Metrics
}

func NewGateway(input Appender, output ResponseReader, poll time.Duration, log logger.Interface, m *metrics.Metrics) *Gateway {
	if poll <= 0 {
		poll = time.Millisecond
	}
	return &Gateway{input: input, output: output, poll: poll, logger: log, metrics: m}
}

// Submit appends req and blocks until its response is committed. A
// request without a guid gets a random one. Once appended the request
// will be processed even if ctx ends first; the caller then gets the
// context error and can read the response later by sequence.
func (g *Gateway) Submit(ctx context.Context, req message.Request) (message.Response, error) {
	defer g.metrics.GatewayCall()()

	if req.Guid == "" {
		req.Guid = uuid.NewString()
	}
	data, err := codec.EncodeRequest(&req)
	if err != nil {
		return message.Response{}, tracer.Wrapf(err, "encode request %s", req.Guid)
	}
	rec, err := g.input.Append(entrywal.RecordRequest, data)
	if err != nil {
		return message.Response{}, err
	}

	return g.Await(ctx, rec.Seq)
}

// Await blocks until the response for seq is committed.
func (g *Gateway) Await(ctx context.Context, seq uint64) (message.Response, error) {
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		payload, err := g.output.Get(seq)
		if err == nil {
			resp, err := codec.DecodeResponse(payload)
			if err != nil {
				return message.Response{}, tracer.Wrapf(err, "decode response %d", seq)
			}
			return resp, nil
		}
		if !errors.Is(err, exitwal.ErrNotFound) {
			return message.Response{}, err
		}

		select {
		case <-ctx.Done():
			g.logger.Debug("gave up waiting for response",
				logger.NewField("sequence", seq),
				logger.NewField("reason", ctx.Err().Error()),
			)
			return message.Response{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
