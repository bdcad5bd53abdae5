package entry

type RecordType uint8

const (
	// RecordRequest carries one encoded request.
	RecordRequest RecordType = iota + 1
)

// Record is one frame of the input log. Cycle is not stored in the
// frame; it is the index of the segment the record was read from.
type Record struct {
	Type  RecordType
	Seq   uint64
	Time  int64
	Data  []byte
	Cycle uint64
}
