package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sequencer/domain/message"
	entrywal "sequencer/infra/wal/entry"
	"sequencer/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewaySubmitWaitsForResponse(t *testing.T) {
	r := newRig(t, 0)
	e := r.engine(EngineConfig{EcoMode: true, PollInterval: time.Millisecond}, true)
	g := NewGateway(r.input, r.output, time.Millisecond, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	reqs := script()
	var wg sync.WaitGroup
	responses := make([]message.Response, len(reqs))
	for i := range reqs[:2] {
		resp, err := g.Submit(ctx, reqs[i])
		require.NoError(t, err)
		responses[i] = resp
	}
	for i := 2; i < len(reqs); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := g.Submit(ctx, reqs[i])
			assert.NoError(t, err)
			responses[i] = resp
		}()
	}
	wg.Wait()

	for i, resp := range responses {
		assert.Equal(t, reqs[i].Guid, resp.Guid)
		assert.NotZero(t, resp.Sequence)
	}
	assert.Equal(t, message.ErrNone, responses[0].Error)
	require.Len(t, responses[1].MarketsCreated, 1)

	anonymous, err := g.Submit(ctx, message.Request{Type: message.AuthorizeWallet, Authorization: &message.WalletAuthorization{Account: 1, Wallet: "0xabc"}})
	require.NoError(t, err)
	assert.Len(t, anonymous.Guid, 36, "random uuid assigned")
}

func TestGatewayConcurrentSubmittersGetTheirOwnResponses(t *testing.T) {
	r := newRig(t, 0)
	e := r.engine(EngineConfig{EcoMode: true, PollInterval: time.Millisecond}, false)
	g := NewGateway(r.input, r.output, time.Millisecond, logger.NewNop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	const submitters = 32
	responses := make([]message.Response, submitters)
	var wg sync.WaitGroup
	for i := range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := g.Submit(ctx, message.Request{
				Type: message.ApplyBalanceBatch,
				Guid: fmt.Sprintf("deposit-%d", i),
				BalanceBatch: &message.BalanceBatch{Deposits: []message.Deposit{
					{Account: message.AccountID(i + 1), Asset: "BTC:0", Amount: decimal.NewFromInt(int64(i + 1))},
				}},
			})
			assert.NoError(t, err)
			responses[i] = resp
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool, submitters)
	for i, resp := range responses {
		assert.Equal(t, fmt.Sprintf("deposit-%d", i), resp.Guid)
		require.Len(t, resp.BalancesChanged, 1)
		assert.Equal(t, message.AccountID(i+1), resp.BalancesChanged[0].Account)
		assert.False(t, seen[resp.Sequence], "sequence %d handed out twice", resp.Sequence)
		seen[resp.Sequence] = true

		again, err := g.Await(ctx, resp.Sequence)
		require.NoError(t, err)
		assert.Equal(t, resp.Guid, again.Guid)
	}
	assert.Equal(t, uint64(submitters), r.input.LastSequence())
}

func TestGatewayGivesUpWithContext(t *testing.T) {
	r := newRig(t, 0)
	g := NewGateway(r.input, r.output, time.Millisecond, logger.NewNop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Submit(ctx, script()[0])
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), r.input.LastSequence(), "request stays in the input log")
}

type failingAppender struct{}

func (failingAppender) Append(entrywal.RecordType, []byte) (entrywal.Record, error) {
	return entrywal.Record{}, errors.New("disk full")
}

func TestGatewayAppendFailure(t *testing.T) {
	r := newRig(t, 0)
	g := NewGateway(failingAppender{}, r.output, time.Millisecond, logger.NewNop(), nil)

	_, err := g.Submit(context.Background(), script()[0])
	assert.EqualError(t, err, "disk full")
}
