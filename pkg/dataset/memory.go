// pkg/dataset/memory.go

package dataset

import (
	"sync"

	"AveSeq/pkg/chunk"

	"github.com/pkg/errors"
)

// Memory is a deserializer over records kept in memory.
type Memory struct {
	streams []chunk.Stream
	chunks  []records

	mu    sync.Mutex
	loads map[chunk.ID]int
}

// NewMemory returns a deserializer where chunk i holds chunks[i].
func NewMemory(streams []string, chunks [][]Record) *Memory {
	m := &Memory{
		streams: streamsOf(streams),
		loads:   make(map[chunk.ID]int),
	}
	for _, c := range chunks {
		m.chunks = append(m.chunks, records(c))
	}
	return m
}

func (m *Memory) Streams() []chunk.Stream {
	return m.streams
}

func (m *Memory) ChunkDescriptions() ([]chunk.Description, error) {
	ds := make([]chunk.Description, len(m.chunks))
	for i, c := range m.chunks {
		var samples uint64
		for _, r := range c {
			samples += uint64(r.Samples)
		}
		ds[i] = chunk.Description{ID: chunk.ID(i), NumberOfSequences: uint32(len(c)), NumberOfSamples: samples}
	}
	return ds, nil
}

func (m *Memory) SequenceInfos(id chunk.ID) ([]chunk.Sequence, error) {
	if int(id) >= len(m.chunks) {
		return nil, errors.Errorf("unknown chunk %d", id)
	}
	samples := make([]uint32, len(m.chunks[id]))
	for i, r := range m.chunks[id] {
		samples[i] = r.Samples
	}
	return sequenceInfos(id, samples), nil
}

func (m *Memory) GetChunk(id chunk.ID) (chunk.Chunk, error) {
	if int(id) >= len(m.chunks) {
		return nil, errors.Errorf("unknown chunk %d", id)
	}
	m.mu.Lock()
	m.loads[id]++
	m.mu.Unlock()
	return m.chunks[id], nil
}

// Loads returns how many times chunk id was loaded.
func (m *Memory) Loads(id chunk.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[id]
}
