package snapshot

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/blake3"
)

func decode(b []byte) (Checkpoint, error) {
	if len(b) < headerSize {
		return Checkpoint{}, ErrCorrupt
	}
	digest := blake3.Sum256(b[digestSize:])
	if !bytes.Equal(digest[:], b[:digestSize]) {
		return Checkpoint{}, ErrCorrupt
	}
	return Checkpoint{
		Cycle:    binary.BigEndian.Uint64(b[digestSize : digestSize+8]),
		Sequence: binary.BigEndian.Uint64(b[digestSize+8 : headerSize]),
		State:    bytes.Clone(b[headerSize:]),
	}, nil
}
