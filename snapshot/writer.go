package snapshot

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Stored layout:
// [digest:32][cycle:8][sequence:8][state]
// The digest covers everything after it.
const (
	digestSize = 32
	headerSize = digestSize + 8 + 8
)

func encode(c Checkpoint) []byte {
	buf := make([]byte, headerSize+len(c.State))
	binary.BigEndian.PutUint64(buf[digestSize:digestSize+8], c.Cycle)
	binary.BigEndian.PutUint64(buf[digestSize+8:headerSize], c.Sequence)
	copy(buf[headerSize:], c.State)

	digest := blake3.Sum256(buf[digestSize:])
	copy(buf[:digestSize], digest[:])
	return buf
}
