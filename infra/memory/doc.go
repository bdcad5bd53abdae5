// Package memory provides typed object pools used on the hot path:
// order book level buffers and codec scratch buffers.
package memory
