package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsGaplessUnderConcurrency(t *testing.T) {
	s := New(10)

	var wg sync.WaitGroup
	seen := make([]uint64, 100)
	for i := range seen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen[i] = s.Next()
		}()
	}
	wg.Wait()

	unique := map[uint64]struct{}{}
	for _, v := range seen {
		assert.Greater(t, v, uint64(10))
		assert.LessOrEqual(t, v, uint64(110))
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, uint64(110), s.Current())
}

func TestRewind(t *testing.T) {
	s := New(0)
	n := s.Next()
	s.Rewind(n)
	assert.Equal(t, uint64(0), s.Current())

	a := s.Next()
	s.Next()
	s.Rewind(a)
	assert.Equal(t, uint64(2), s.Current(), "stale rewind is ignored")
}
