// Package sequencer holds the exchange state (markets, balances and
// per-market consumption) and the Processor that applies one request at
// a time to it.
//
// Process is a pure reducer apart from the clock used for response
// timestamps: given the same state and the same request it produces the
// same response and the same next state. Request level failures are
// reported in Response.Error and never as Go errors.
package sequencer
