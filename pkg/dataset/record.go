// pkg/dataset/record.go

package dataset

import (
	"AveSeq/pkg/chunk"

	"github.com/pkg/errors"
)

// Record is one sequence of a dataset.
type Record struct {
	Samples uint32        `json:"samples"`
	Fields  []chunk.Field `json:"fields"`
}

type records []Record

func (rs records) ReadRecord(index uint64) ([]chunk.Field, error) {
	if index >= uint64(len(rs)) {
		return nil, errors.Errorf("sequence %d out of range [0, %d)", index, len(rs))
	}
	return rs[index].Fields, nil
}

func sequenceInfos(id chunk.ID, samples []uint32) []chunk.Sequence {
	seqs := make([]chunk.Sequence, len(samples))
	for i, n := range samples {
		seqs[i] = chunk.Sequence{IndexInChunk: uint64(i), NumberOfSamples: n, ChunkID: id}
	}
	return seqs
}

func streamsOf(names []string) []chunk.Stream {
	streams := make([]chunk.Stream, len(names))
	for i, name := range names {
		streams[i] = chunk.Stream{ID: i, Name: name}
	}
	return streams
}
