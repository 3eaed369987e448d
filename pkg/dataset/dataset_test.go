package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"AveSeq/pkg/chunk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(chunkIdx, n int) []Record {
	rs := make([]Record, n)
	for i := range rs {
		rs[i] = Record{
			Samples: uint32(i%3 + 1),
			Fields: []chunk.Field{
				chunk.Field(fmt.Sprintf("features-%d-%d", chunkIdx, i)),
				chunk.Field(fmt.Sprintf("labels-%d-%d", chunkIdx, i)),
			},
		}
	}
	return rs
}

func writeDataset(t *testing.T, dir, compression string, sizes ...int) {
	w, err := Create(dir, []string{"features", "labels"}, compression)
	require.NoError(t, err)
	for i, n := range sizes {
		id, err := w.WriteChunk(makeRecords(i, n))
		require.NoError(t, err)
		require.Equal(t, chunk.ID(i), id)
	}
	require.NoError(t, w.Close())
}

func TestWriteAndRead(t *testing.T) {
	for _, compression := range []string{"none", "lz4", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "ds")
			writeDataset(t, dir, compression, 4, 0, 7)

			r, err := Open(Config{Dir: dir})
			require.NoError(t, err)
			require.NotEmpty(t, r.Manifest().UUID)
			require.Equal(t, []chunk.Stream{{ID: 0, Name: "features"}, {ID: 1, Name: "labels"}}, r.Streams())

			ds, err := r.ChunkDescriptions()
			require.NoError(t, err)
			require.Len(t, ds, 3)
			assert.Equal(t, chunk.Description{ID: 0, NumberOfSequences: 4, NumberOfSamples: 1 + 2 + 3 + 1}, ds[0])
			assert.Equal(t, chunk.Description{ID: 1}, ds[1])
			assert.EqualValues(t, 7, ds[2].NumberOfSequences)

			seqs, err := r.SequenceInfos(2)
			require.NoError(t, err)
			require.Len(t, seqs, 7)
			assert.Equal(t, chunk.Sequence{IndexInChunk: 4, NumberOfSamples: 2, ChunkID: 2}, seqs[4])

			c, err := r.GetChunk(2)
			require.NoError(t, err)
			fields, err := c.ReadRecord(5)
			require.NoError(t, err)
			assert.Equal(t, "features-2-5", string(fields[0]))
			assert.Equal(t, "labels-2-5", string(fields[1]))
			_, err = c.ReadRecord(7)
			assert.Error(t, err)

			empty, err := r.GetChunk(1)
			require.NoError(t, err)
			_, err = empty.ReadRecord(0)
			assert.Error(t, err)

			_, err = r.GetChunk(9)
			assert.Error(t, err)
			_, err = r.SequenceInfos(9)
			assert.Error(t, err)
		})
	}
}

func TestDownloadLimit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ds")
	writeDataset(t, dir, "zstd", 3)
	r, err := Open(Config{Dir: dir, DownloadLimit: 1 << 20})
	require.NoError(t, err)
	c, err := r.GetChunk(0)
	require.NoError(t, err)
	fields, err := c.ReadRecord(0)
	require.NoError(t, err)
	require.Equal(t, "features-0-0", string(fields[0]))
}

func TestCreateErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ds")
	_, err := Create(dir, nil, "none")
	require.Error(t, err)
	_, err = Create(dir, []string{"x"}, "brotli")
	require.Error(t, err)

	writeDataset(t, dir, "none", 1)
	_, err = Create(dir, []string{"x"}, "none")
	require.Error(t, err, "existing dataset must not be overwritten")

	w, err := Create(filepath.Join(t.TempDir(), "other"), []string{"a", "b"}, "none")
	require.NoError(t, err)
	_, err = w.WriteChunk([]Record{{Samples: 1, Fields: []chunk.Field{chunk.Field("a")}}})
	require.Error(t, err)
}

func TestCorruptedChunk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ds")
	writeDataset(t, dir, "none", 2)
	r, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, r.Manifest().Chunks[0].File), []byte{0, 0}, 0644))
	_, err = r.GetChunk(0)
	require.Error(t, err)
}

func TestChunkHeaderIsBounded(t *testing.T) {
	for _, compression := range []string{"none", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "ds")
			writeDataset(t, dir, compression, 2)
			r, err := Open(Config{Dir: dir})
			require.NoError(t, err)

			path := filepath.Join(dir, r.Manifest().Chunks[0].File)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			copy(data, []byte{0xff, 0xff, 0xff, 0xff})
			require.NoError(t, os.WriteFile(path, data, 0644))
			_, err = r.GetChunk(0)
			require.Error(t, err)
			require.Contains(t, err.Error(), "does not match its header")
		})
	}

	dir := filepath.Join(t.TempDir(), "ds")
	writeDataset(t, dir, "none", 2)
	r, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	path := filepath.Join(dir, r.Manifest().Chunks[0].File)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0644))
	_, err = r.GetChunk(0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match its header")
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(Config{Dir: t.TempDir()})
	require.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory([]string{"features", "labels"}, [][]Record{makeRecords(0, 2), makeRecords(1, 3)})
	ds, err := m.ChunkDescriptions()
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.EqualValues(t, 1+2+3, ds[1].NumberOfSamples)

	seqs, err := m.SequenceInfos(1)
	require.NoError(t, err)
	require.Len(t, seqs, 3)

	c, err := m.GetChunk(1)
	require.NoError(t, err)
	fields, err := c.ReadRecord(2)
	require.NoError(t, err)
	assert.Equal(t, "labels-1-2", string(fields[1]))
	assert.Equal(t, 1, m.Loads(1))
	assert.Equal(t, 0, m.Loads(0))

	_, err = m.GetChunk(5)
	assert.Error(t, err)
}
