// Package orderbook implements a single market: a tick-indexed array
// of price levels, each a fixed-capacity FIFO ring buffer of resting
// orders, plus the matching, sizing and auto-reduce rules that run on
// top of it.
//
// The package is single-threaded and pure. It never touches account
// balances; every batch returns balance and consumption deltas for the
// caller to apply.
package orderbook
