package sequencer

import (
	"slices"
	"time"

	"sequencer/domain/message"
	"sequencer/domain/orderbook"
)

// Processor applies requests to a State, one at a time, in log order.
// Given the same state and request it always produces the same
// response apart from CreatedAt and ProcessingTime.
type Processor struct {
	state   *State
	sandbox bool
	now     func() time.Time
}

type Option func(*Processor)

// WithSandbox enables Reset and GetState.
func WithSandbox(enabled bool) Option {
	return func(p *Processor) { p.sandbox = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(state *State, opts ...Option) *Processor {
	if state == nil {
		state = NewState()
	}
	p := &Processor{state: state, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) State() *State { return p.state }

// Restore swaps in a state loaded from a checkpoint.
func (p *Processor) Restore(state *State) { p.state = state }

// Process handles one request. A nil request is treated as unparseable.
func (p *Processor) Process(req *message.Request, sequence uint64) message.Response {
	start := p.now()
	resp := message.Response{Sequence: sequence}
	if req == nil {
		resp.Error = message.ErrUnknownRequest
		return p.stamp(resp, start)
	}
	resp.Guid = req.Guid

	switch req.Type {
	case message.AddMarket:
		p.addMarket(&resp, req.AddMarket)
	case message.SetFeeRates:
		p.setFeeRates(&resp, req.FeeRates)
	case message.SetWithdrawalFees:
		p.setWithdrawalFees(&resp, req.WithdrawalFees)
	case message.SetMarketMinFees:
		p.setMarketMinFees(&resp, req.MarketMinFees)
	case message.ApplyOrderBatch:
		if req.OrderBatch == nil {
			resp.Error = message.ErrUnknownRequest
			break
		}
		if req.OrderBatch.Guid != "" {
			resp.Guid = req.OrderBatch.Guid
		}
		p.applyOrderBatch(&resp, req.OrderBatch)
	case message.ApplyBalanceBatch:
		if req.BalanceBatch == nil {
			resp.Error = message.ErrUnknownRequest
			break
		}
		if req.BalanceBatch.Guid != "" {
			resp.Guid = req.BalanceBatch.Guid
		}
		p.applyBalanceBatch(&resp, req.BalanceBatch)
	case message.ApplyBackToBackOrder:
		if req.BackToBackOrder == nil {
			resp.Error = message.ErrUnknownRequest
			break
		}
		p.applyBackToBackOrder(&resp, req.BackToBackOrder)
	case message.Reset:
		if !p.sandbox {
			resp.Error = message.ErrUnknownRequest
			break
		}
		p.state.Reset()
	case message.GetState:
		if !p.sandbox {
			resp.Error = message.ErrUnknownRequest
			break
		}
		dump := p.state.Dump()
		resp.StateDump = &dump
	case message.AuthorizeWallet:
		// acknowledged only; wallets are not tracked here
	default:
		resp.Error = message.ErrUnknownRequest
	}
	return p.stamp(resp, start)
}

func (p *Processor) stamp(resp message.Response, start time.Time) message.Response {
	now := p.now()
	resp.CreatedAt = now.UnixMilli()
	resp.ProcessingTime = now.Sub(start).Nanoseconds()
	return resp
}

// -------------------- Configuration requests --------------------

func (p *Processor) addMarket(resp *message.Response, def *message.Market) {
	if def == nil || !def.ID.Valid() || !def.TickSize.IsPositive() || def.BaseDecimals < 0 || def.QuoteDecimals < 0 {
		resp.Error = message.ErrUnknownRequest
		return
	}
	if existing, ok := p.state.Markets[def.ID]; ok {
		if !existing.TickSize.Equal(def.TickSize) || existing.BaseDecimals != def.BaseDecimals || existing.QuoteDecimals != def.QuoteDecimals {
			resp.Error = message.ErrMarketExists
			return
		}
		resp.MarketsCreated = append(resp.MarketsCreated, existing.Definition())
		return
	}
	m := orderbook.NewMarket(*def)
	p.state.AddMarket(m)
	resp.MarketsCreated = append(resp.MarketsCreated, m.Definition())
}

func (p *Processor) setFeeRates(resp *message.Response, rates *message.FeeRates) {
	if rates == nil || !rates.Valid() {
		resp.Error = message.ErrInvalidFeeRate
		return
	}
	p.state.FeeRates = *rates
	set := *rates
	resp.FeeRatesSet = &set
}

func (p *Processor) setWithdrawalFees(resp *message.Response, fees []message.WithdrawalFee) {
	if len(fees) == 0 {
		resp.Error = message.ErrInvalidWithdrawalFee
		return
	}
	for _, f := range fees {
		if f.Asset == "" || f.Value.IsNegative() {
			resp.Error = message.ErrInvalidWithdrawalFee
			return
		}
	}
	for _, f := range fees {
		p.state.WithdrawalFees[f.Asset] = f.Value
	}
	resp.WithdrawalFeesSet = slices.Clone(fees)
}

// setMarketMinFees ignores entries for markets that do not exist.
func (p *Processor) setMarketMinFees(resp *message.Response, fees []message.MarketMinFee) {
	if len(fees) == 0 {
		resp.Error = message.ErrInvalidMarketMinFee
		return
	}
	for _, f := range fees {
		if f.MinFee.IsNegative() {
			resp.Error = message.ErrInvalidMarketMinFee
			return
		}
	}
	for _, f := range fees {
		if m, ok := p.state.Markets[f.MarketID]; ok {
			m.MinFee = f.MinFee
			resp.MarketMinFeesSet = append(resp.MarketMinFeesSet, f)
		}
	}
}
