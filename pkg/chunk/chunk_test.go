package chunk

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testChunk struct {
	id     ID
	closed int32
}

func (c *testChunk) ReadRecord(index uint64) ([]Field, error) {
	return []Field{Field(fmt.Sprintf("%d/%d", c.id, index))}, nil
}

func (c *testChunk) Close() error {
	atomic.AddInt32(&c.closed, 1)
	return nil
}

func TestEndOfSweep(t *testing.T) {
	require.True(t, EndOfSweep.IsEndOfSweep())
	require.False(t, Sequence{IndexInChunk: 0, NumberOfSamples: 1, ChunkID: 0}.IsEndOfSweep())
	require.False(t, Sequence{IndexInChunk: EndOfSweep.IndexInChunk, NumberOfSamples: 1, ChunkID: MaxID}.IsEndOfSweep())
}

func TestHandleRelease(t *testing.T) {
	c := &testChunk{id: 3}
	h := NewHandle(3, c)
	h.Acquire()
	require.EqualValues(t, 2, h.Refs())

	h.Release()
	require.EqualValues(t, 0, atomic.LoadInt32(&c.closed))
	fields, err := h.ReadRecord(7)
	require.NoError(t, err)
	require.Equal(t, "3/7", string(fields[0]))

	h.Release()
	require.EqualValues(t, 1, atomic.LoadInt32(&c.closed))
	_, err = h.ReadRecord(7)
	require.Error(t, err)
}

func TestCacheRebuild(t *testing.T) {
	loaded := make(map[ID]*testChunk)
	load := func(id ID) (Chunk, error) {
		c := &testChunk{id: id}
		loaded[id] = c
		return c, nil
	}

	first, err := NewCache().Rebuild([]ID{1, 2, 1}, load)
	require.NoError(t, err)
	require.Equal(t, []ID{1, 2}, first.IDs())
	hits, misses := first.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 2, misses)

	second, err := first.Rebuild([]ID{2, 3}, func(id ID) (Chunk, error) {
		require.Equal(t, ID(3), id, "resident chunks must not be reloaded")
		return load(id)
	})
	require.NoError(t, err)
	first.Release()

	require.Equal(t, []ID{2, 3}, second.IDs())
	hits, misses = second.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.EqualValues(t, 1, atomic.LoadInt32(&loaded[1].closed))
	assert.EqualValues(t, 0, atomic.LoadInt32(&loaded[2].closed))

	_, ok := second.Get(1)
	assert.False(t, ok)
	h, ok := second.Get(2)
	require.True(t, ok)
	assert.EqualValues(t, 1, h.Refs())

	second.Release()
	assert.Equal(t, 0, second.Len())
	assert.EqualValues(t, 1, atomic.LoadInt32(&loaded[2].closed))
	assert.EqualValues(t, 1, atomic.LoadInt32(&loaded[3].closed))
}

func TestCacheRebuildFailure(t *testing.T) {
	ok := &testChunk{id: 1}
	broken := errors.New("disk gone")
	_, err := NewCache().Rebuild([]ID{1, 2}, func(id ID) (Chunk, error) {
		if id == 2 {
			return nil, broken
		}
		return ok, nil
	})
	require.Error(t, err)
	require.Equal(t, broken, errors.Cause(err))
	require.EqualValues(t, 1, atomic.LoadInt32(&ok.closed), "partially built cache must be released")
}

func TestControllerCollapsesLoads(t *testing.T) {
	var con Controller
	var calls int32
	inflight := make(chan struct{})
	release := make(chan struct{})
	loaded := &testChunk{id: 5}
	load := func() (Chunk, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(inflight)
		}
		<-release
		return loaded, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := con.Execute(5, load)
		assert.NoError(t, err)
		assert.Equal(t, Chunk(loaded), c)
	}()
	<-inflight
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := con.Execute(5, load)
		assert.NoError(t, err)
		assert.Equal(t, Chunk(loaded), c)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, err := con.Execute(5, func() (Chunk, error) { return nil, errors.New("boom") })
	require.Error(t, err)
}
