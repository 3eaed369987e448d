// pkg/chunk/chunk.go

package chunk

import (
	"math"

	"AveSeq/pkg/utils"
)

var logger = utils.GetLogger("aveseq")

// ID identifies a chunk inside a deserializer.
type ID uint32

// MaxID is reserved for the end-of-sweep marker.
const MaxID = ID(math.MaxUint32)

// Field is the opaque value of one stream of a record.
type Field []byte

// Stream describes one field of every record.
type Stream struct {
	ID   int
	Name string
}

// Description is the summary of a chunk as listed by a deserializer.
type Description struct {
	ID                ID
	NumberOfSequences uint32
	NumberOfSamples   uint64
}

// Sequence addresses one record of a chunk.
type Sequence struct {
	IndexInChunk    uint64
	NumberOfSamples uint32
	ChunkID         ID
}

// EndOfSweep marks a sweep boundary inside a sequence window; it is not a record.
var EndOfSweep = Sequence{
	IndexInChunk:    math.MaxUint64,
	NumberOfSamples: math.MaxUint32,
	ChunkID:         MaxID,
}

func (s Sequence) IsEndOfSweep() bool {
	return s == EndOfSweep
}

// Chunk is a loaded unit of storage.
type Chunk interface {
	// ReadRecord returns one value per stream, in stream order.
	ReadRecord(index uint64) ([]Field, error)
}

// Deserializer enumerates chunks and loads them on demand.
type Deserializer interface {
	Streams() []Stream
	ChunkDescriptions() ([]Description, error)
	SequenceInfos(id ID) ([]Sequence, error)
	GetChunk(id ID) (Chunk, error)
}
