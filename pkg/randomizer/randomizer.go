// pkg/randomizer/randomizer.go

package randomizer

import (
	"math"
	"sync"

	"AveSeq/pkg/chunk"
	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
)

var logger = utils.GetLogger("aveseq")

// Policy decides which sequences enter the window and in which order.
type Policy interface {
	// RefillWindow returns the next window. It must return at least one
	// sequence or chunk.EndOfSweep.
	RefillWindow(cfg ReaderConfig) ([]chunk.Sequence, error)
	// InnerState returns the position of the policy, so that RefillWindow
	// after SetState(InnerState()) returns the same window again.
	InnerState() State
	// SetState receives the whole checkpoint, including keys it does not own.
	SetState(st State) error
}

// Minibatch is the result of GetNextSequences. Data is indexed by stream,
// then by the position of the record in Sequences.
type Minibatch struct {
	Sequences  []chunk.Sequence
	Data       [][]chunk.Field
	EndOfSweep bool
	EndOfEpoch bool
}

type Stats struct {
	Minibatches uint64
	Sequences   uint64
	Samples     uint64
	Refills     uint64
	ChunkLoads  uint64
	ChunkHits   uint64
}

// Randomizer produces minibatches from a sliding window of sequences filled by
// a Policy. It is not safe for concurrent use.
type Randomizer struct {
	deserializer chunk.Deserializer
	policy       Policy
	opts         Options
	streams      []chunk.Stream
	descriptions []chunk.Description

	config  EpochConfig
	started bool

	window   []chunk.Sequence
	position int

	sweepIndex   uint64
	samplesSeen  uint64
	currentState State // captured at the last refill
	extra        State // restored keys nobody owns

	chunks *chunk.Cache
	stats  Stats

	logMu   sync.Mutex
	readers map[*AccessLog]struct{}
}

func New(d chunk.Deserializer, p Policy, opts Options) (*Randomizer, error) {
	if d == nil || p == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "deserializer and policy are required")
	}
	descriptions, err := d.ChunkDescriptions()
	if err != nil {
		return nil, errors.Wrap(err, "list chunks")
	}
	if len(descriptions) == 0 {
		return nil, ErrNoChunks
	}
	streams := d.Streams()
	if len(streams) == 0 {
		return nil, ErrNoStreams
	}
	if opts.Workers < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "workers %d", opts.Workers)
	}
	return &Randomizer{
		deserializer: d,
		policy:       p,
		opts:         opts,
		streams:      streams,
		descriptions: descriptions,
		currentState: State{},
		extra:        State{},
		chunks:       chunk.NewCache(),
		readers:      make(map[*AccessLog]struct{}),
	}, nil
}

func (r *Randomizer) Streams() []chunk.Stream {
	return r.streams
}

// ChunkDescriptions returns the chunks listed at construction.
func (r *Randomizer) ChunkDescriptions() []chunk.Description {
	return r.descriptions
}

func (r *Randomizer) Config() EpochConfig {
	return r.config
}

func (r *Randomizer) Stats() Stats {
	return r.stats
}

// SetConfiguration replaces the reader part of the epoch configuration without
// touching the window.
func (r *Randomizer) SetConfiguration(cfg ReaderConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	r.config.ReaderConfig = cfg
	return nil
}

// GetNextSequences returns the next minibatch of at most sampleCount samples,
// or a single sequence when that sequence alone is larger.
func (r *Randomizer) GetNextSequences(sampleCount int) (*Minibatch, error) {
	start := utils.Now()
	mb, err := r.next(sampleCount)
	if err != nil {
		r.logit(start, "next (%d): %s", sampleCount, err)
		return nil, err
	}
	var flags string
	if mb.EndOfSweep {
		flags += " end-of-sweep"
	}
	if mb.EndOfEpoch {
		flags += " end-of-epoch"
	}
	r.logit(start, "next (%d): %d sequences, sweep %d, seen %d%s", sampleCount, len(mb.Sequences), r.sweepIndex, r.samplesSeen, flags)
	return mb, nil
}

func (r *Randomizer) next(sampleCount int) (*Minibatch, error) {
	if !r.started {
		return nil, ErrNotStarted
	}
	if sampleCount <= 0 {
		return nil, errors.Wrapf(ErrInvalidSampleCount, "sample count must be positive: %d", sampleCount)
	}
	if sampleCount > math.MaxInt32 {
		return nil, errors.Wrapf(ErrInvalidSampleCount, "local size of the minibatch cannot exceed %d: %d", math.MaxInt32, sampleCount)
	}

	mb := &Minibatch{}
	if r.isEndReached() {
		mb.EndOfEpoch = true
		return mb, nil
	}

	sequences, err := r.selectSequences(uint64(sampleCount), mb)
	if err != nil {
		return nil, err
	}
	if len(sequences) == 0 {
		return mb, nil
	}

	data, err := r.materialize(sequences)
	if err != nil {
		return nil, err
	}
	mb.Sequences = sequences
	mb.Data = data
	r.stats.Minibatches++
	r.stats.Sequences += uint64(len(sequences))
	for _, seq := range sequences {
		r.stats.Samples += uint64(seq.NumberOfSamples)
	}
	return mb, nil
}

// Close releases the cached chunks.
func (r *Randomizer) Close() {
	r.chunks.Release()
}
