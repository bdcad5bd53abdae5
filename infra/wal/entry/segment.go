package entry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

const segmentPattern = "segment-%06d.wal"

type segment struct {
	file   *os.File
	cycle  uint64
	offset int64
}

func segmentPath(dir string, cycle uint64) string {
	return filepath.Join(dir, fmt.Sprintf(segmentPattern, cycle))
}

func openSegment(dir string, cycle uint64) (*segment, error) {
	f, err := os.OpenFile(segmentPath(dir, cycle), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	off, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{file: f, cycle: cycle, offset: off}, nil
}

// append writes b in one call. A short or failed write is cut off again
// so the next frame starts on a frame boundary.
func (s *segment) append(b []byte) error {
	n, err := s.file.WriteAt(b, s.offset)
	if err != nil {
		if n > 0 {
			_ = s.file.Truncate(s.offset)
		}
		return err
	}
	s.offset += int64(n)
	return nil
}

func (s *segment) sync() error {
	return s.file.Sync()
}

func (s *segment) close() error {
	return s.file.Close()
}

// listCycles returns the cycles present in dir in ascending order.
func listCycles(dir string) ([]uint64, error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return nil, err
	}
	cycles := make([]uint64, 0, len(files))
	for _, path := range files {
		var c uint64
		if _, err := fmt.Sscanf(filepath.Base(path), segmentPattern, &c); err != nil {
			continue
		}
		cycles = append(cycles, c)
	}
	slices.Sort(cycles)
	return cycles, nil
}

// scanSegment walks a segment to its last valid frame. It returns the
// last sequence seen (0 when the segment holds none) and the offset just
// past the last valid frame.
func scanSegment(path string) (lastSeq uint64, valid int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	for {
		rec, n, err := readFrameAt(f, valid)
		if err != nil {
			if err == io.EOF || err == errIncomplete || err == ErrCorrupt {
				return lastSeq, valid, nil
			}
			return lastSeq, valid, err
		}
		lastSeq = rec.Seq
		valid += n
	}
}
