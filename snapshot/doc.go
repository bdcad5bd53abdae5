// Package snapshot persists checkpoints of the sequencer state, one per
// completed input log cycle, and finds the newest usable one during
// recovery.
//
// Every stored checkpoint carries a BLAKE3 digest of its contents. A
// checkpoint whose digest does not match is treated as absent and the
// next older one is tried.
package snapshot
