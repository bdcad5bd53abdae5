package entry

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, cfg Config) *WAL {
	t.Helper()
	w, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func appendN(t *testing.T, w *WAL, n int) []Record {
	t.Helper()
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := w.Append(RecordRequest, []byte(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestAppendAssignsSequences(t *testing.T) {
	w := openTest(t, Config{Dir: t.TempDir()})

	recs := appendN(t, w, 3)
	for i, rec := range recs {
		assert.Equal(t, uint64(i+1), rec.Seq)
		assert.Equal(t, uint64(0), rec.Cycle)
	}
	assert.Equal(t, uint64(3), w.LastSequence())
}

func TestTailerFollowsWriterAcrossCycles(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, Config{Dir: dir, SegmentSize: 64})
	tail := NewTailer(dir, 0)
	defer tail.Close()

	_, err := tail.Next()
	assert.ErrorIs(t, err, ErrNoRecord)

	written := appendN(t, w, 10)
	cycles, err := w.Cycles()
	require.NoError(t, err)
	assert.Greater(t, len(cycles), 1, "small segments roll over")

	for _, want := range written {
		got, err := tail.Next()
		require.NoError(t, err)
		assert.Equal(t, want.Seq, got.Seq)
		assert.Equal(t, want.Cycle, got.Cycle)
		assert.Equal(t, want.Data, got.Data)
	}
	_, err = tail.Next()
	assert.ErrorIs(t, err, ErrNoRecord)

	more := appendN(t, w, 1)
	got, err := tail.Next()
	require.NoError(t, err)
	assert.Equal(t, more[0].Seq, got.Seq)
}

func TestRotateByDuration(t *testing.T) {
	w := openTest(t, Config{Dir: t.TempDir(), SegmentDuration: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	w.now = func() time.Time { return now }
	w.lastRotate = now

	first := appendN(t, w, 2)
	now = now.Add(2 * time.Minute)
	second := appendN(t, w, 1)

	assert.Equal(t, first[1].Cycle, first[0].Cycle)
	assert.Equal(t, first[0].Cycle+1, second[0].Cycle)
}

func TestReopenResumesAfterTornTail(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	appendN(t, w, 3)
	require.NoError(t, w.Close())

	f, err := os.OpenFile(segmentPath(dir, 0), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{byte(RecordRequest), 0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w = openTest(t, Config{Dir: dir})
	assert.Equal(t, uint64(3), w.LastSequence())
	assert.Equal(t, uint64(1), w.Cycle(), "writing continues in a new cycle")

	rec, err := w.Append(RecordRequest, []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), rec.Seq)

	var seqs []uint64
	last, err := Replay(dir, func(r Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4}, seqs)
	assert.Equal(t, uint64(4), last)
}

func TestCorruptFrameIsReported(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, Config{Dir: dir})
	appendN(t, w, 2)

	data, err := os.ReadFile(segmentPath(dir, 0))
	require.NoError(t, err)
	data[headerSize] ^= 0xff
	require.NoError(t, os.WriteFile(segmentPath(dir, 0), data, 0o644))

	_, err = NewTailer(dir, 0).Next()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTruncateBefore(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, Config{Dir: dir, SegmentSize: 1})
	appendN(t, w, 4)

	cycles, err := w.Cycles()
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 3}, cycles)

	require.NoError(t, w.TruncateBefore(2))
	cycles, err = w.Cycles()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, cycles)

	require.NoError(t, w.TruncateBefore(100))
	cycles, err = w.Cycles()
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, cycles, "current cycle is kept")

	tail := NewTailer(dir, 0)
	rec, err := tail.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), rec.Seq, "tailer skips missing cycles")
}

func TestMoveToCycle(t *testing.T) {
	dir := t.TempDir()
	w := openTest(t, Config{Dir: dir, SegmentSize: 1})
	appendN(t, w, 3)

	tail := NewTailer(dir, 0)
	tail.MoveToCycle(2)
	rec, err := tail.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.Seq)
	assert.Equal(t, uint64(2), tail.Cycle())
}
