// Package service runs the sequencer: the Engine that tails the input
// log, applies each request and commits the response to the output log,
// and the Gateway that appends requests and waits for their responses.
//
// The Engine is the only writer of the output log and of checkpoints.
// Any number of Gateways may append to the input log concurrently.
package service
