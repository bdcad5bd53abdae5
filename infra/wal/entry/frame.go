package entry

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Frame:
// [type:1][seq:8][time:8][len:4][payload][crc:4]
// The CRC covers the header and the payload.
const (
	headerSize = 1 + 8 + 8 + 4
	crcSize    = 4
	// MaxPayload bounds a single record so a corrupt length field cannot
	// make a reader allocate gigabytes.
	MaxPayload = 16 << 20
)

var (
	ErrCorrupt = errors.New("entry: corrupt frame")
	// errIncomplete means the frame is not fully on disk yet.
	errIncomplete = errors.New("entry: incomplete frame")
)

func encodeFrame(r Record) []byte {
	n := len(r.Data)
	buf := make([]byte, headerSize+n+crcSize)
	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], uint32(n))
	copy(buf[headerSize:], r.Data)
	binary.BigEndian.PutUint32(buf[headerSize+n:], crc32.ChecksumIEEE(buf[:headerSize+n]))
	return buf
}

// readFrameAt decodes the frame starting at off and returns it with its
// encoded size.
func readFrameAt(r io.ReaderAt, off int64) (Record, int64, error) {
	header := make([]byte, headerSize)
	if n, err := r.ReadAt(header, off); n < headerSize {
		if err == io.EOF && n == 0 {
			return Record{}, 0, io.EOF
		}
		if err == nil || err == io.EOF {
			return Record{}, 0, errIncomplete
		}
		return Record{}, 0, err
	}

	l := binary.BigEndian.Uint32(header[17:21])
	if l > MaxPayload {
		return Record{}, 0, ErrCorrupt
	}
	body := make([]byte, int(l)+crcSize)
	if n, err := r.ReadAt(body, off+headerSize); n < len(body) {
		if err == nil || err == io.EOF {
			return Record{}, 0, errIncomplete
		}
		return Record{}, 0, err
	}

	payload := body[:l]
	h := crc32.NewIEEE()
	h.Write(header)
	h.Write(payload)
	if h.Sum32() != binary.BigEndian.Uint32(body[l:]) {
		return Record{}, 0, ErrCorrupt
	}

	return Record{
		Type: RecordType(header[0]),
		Seq:  binary.BigEndian.Uint64(header[1:9]),
		Time: int64(binary.BigEndian.Uint64(header[9:17])),
		Data: payload,
	}, int64(headerSize + len(body)), nil
}
