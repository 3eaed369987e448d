// pkg/policy/sequential.go

package policy

import (
	"AveSeq/pkg/chunk"
	"AveSeq/pkg/randomizer"
	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("aveseq")

const keyCurrentChunkPosition = "currentChunkPosition"

// Sequential fills the window with one chunk at a time, in the order the
// deserializer lists them. Chunk i belongs to worker i mod NumberOfWorkers.
type Sequential struct {
	d        chunk.Deserializer
	chunks   []chunk.Description
	position int
}

func NewSequential(d chunk.Deserializer) (*Sequential, error) {
	chunks, err := d.ChunkDescriptions()
	if err != nil {
		return nil, errors.Wrap(err, "list chunks")
	}
	if len(chunks) == 0 {
		return nil, randomizer.ErrNoChunks
	}
	return &Sequential{d: d, chunks: chunks}, nil
}

func (p *Sequential) RefillWindow(cfg randomizer.ReaderConfig) ([]chunk.Sequence, error) {
	workers := cfg.NumberOfWorkers
	if workers == 0 {
		workers = 1
	}
	position := p.position
	for {
		var window []chunk.Sequence
		if uint64(position)%workers == cfg.WorkerRank {
			seqs, err := p.d.SequenceInfos(p.chunks[position].ID)
			if err != nil {
				return nil, errors.Wrapf(err, "sequences of chunk %d", p.chunks[position].ID)
			}
			window = seqs
		}
		if position == len(p.chunks)-1 {
			window = append(window, chunk.EndOfSweep)
		}
		position = (position + 1) % len(p.chunks)
		if len(window) > 0 {
			p.position = position
			return window, nil
		}
	}
}

func (p *Sequential) InnerState() randomizer.State {
	return randomizer.State{keyCurrentChunkPosition: uint64(p.position)}
}

func (p *Sequential) SetState(st randomizer.State) error {
	position, err := st.Uint64(keyCurrentChunkPosition)
	if err != nil {
		return err
	}
	if position >= uint64(len(p.chunks)) {
		return errors.Wrapf(randomizer.ErrInvalidState, "chunk position %d out of %d chunks", position, len(p.chunks))
	}
	p.position = int(position)
	return nil
}
