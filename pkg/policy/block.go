// pkg/policy/block.go

package policy

import (
	"math/rand"

	"AveSeq/pkg/chunk"
	"AveSeq/pkg/randomizer"

	"github.com/pkg/errors"
)

const (
	keyChunkPosition = "chunkPosition"
	keySweepCount    = "sweepCount"
	keySeed          = "randomizationSeed"
)

// BlockConfig of the block randomizer.
type BlockConfig struct {
	RandomizationRange uint64 // samples per window, one chunk at least
	Seed               int64
}

// Block shuffles the chunk order once per sweep, then fills each window with
// consecutive chunks of that order and shuffles their sequences. The whole
// order is derived from the seed, the sweep and the chunk position.
type Block struct {
	d      chunk.Deserializer
	conf   BlockConfig
	chunks []chunk.Description

	order    []int
	position int
	sweep    uint64
}

func NewBlock(d chunk.Deserializer, conf BlockConfig) (*Block, error) {
	chunks, err := d.ChunkDescriptions()
	if err != nil {
		return nil, errors.Wrap(err, "list chunks")
	}
	if len(chunks) == 0 {
		return nil, randomizer.ErrNoChunks
	}
	p := &Block{d: d, conf: conf, chunks: chunks}
	p.permute()
	return p, nil
}

func (p *Block) permute() {
	rng := rand.New(rand.NewSource(p.conf.Seed + int64(p.sweep)))
	p.order = rng.Perm(len(p.chunks))
}

func (p *Block) windowSeed(start int) int64 {
	return p.conf.Seed*31 + int64(p.sweep)*int64(len(p.chunks)+1) + int64(start) + 1
}

func (p *Block) RefillWindow(cfg randomizer.ReaderConfig) ([]chunk.Sequence, error) {
	workers := cfg.NumberOfWorkers
	if workers == 0 {
		workers = 1
	}
	for {
		start := p.position
		end := start
		var samples uint64
		var window []chunk.Sequence
		for end < len(p.order) && (end == start || samples < p.conf.RandomizationRange) {
			desc := p.chunks[p.order[end]]
			samples += desc.NumberOfSamples
			if uint64(end)%workers == cfg.WorkerRank {
				seqs, err := p.d.SequenceInfos(desc.ID)
				if err != nil {
					return nil, errors.Wrapf(err, "sequences of chunk %d", desc.ID)
				}
				window = append(window, seqs...)
			}
			end++
		}

		rng := rand.New(rand.NewSource(p.windowSeed(start)))
		rng.Shuffle(len(window), func(i, j int) {
			window[i], window[j] = window[j], window[i]
		})

		p.position = end
		if p.position == len(p.order) {
			window = append(window, chunk.EndOfSweep)
			p.sweep++
			p.position = 0
			p.permute()
			logger.Debugf("block randomizer starts sweep %d", p.sweep)
		}
		if len(window) > 0 {
			return window, nil
		}
	}
}

func (p *Block) InnerState() randomizer.State {
	return randomizer.State{
		keyChunkPosition: uint64(p.position),
		keySweepCount:    p.sweep,
		keySeed:          p.conf.Seed,
	}
}

func (p *Block) SetState(st randomizer.State) error {
	position, err := st.Uint64(keyChunkPosition)
	if err != nil {
		return err
	}
	sweep, err := st.Uint64(keySweepCount)
	if err != nil {
		return err
	}
	seed, err := st.Int64(keySeed)
	if err != nil {
		return err
	}
	if position >= uint64(len(p.chunks)) {
		return errors.Wrapf(randomizer.ErrInvalidState, "chunk position %d out of %d chunks", position, len(p.chunks))
	}
	p.position = int(position)
	p.sweep = sweep
	p.conf.Seed = seed
	p.permute()
	return nil
}
