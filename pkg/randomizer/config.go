// pkg/randomizer/config.go

package randomizer

import (
	"math"

	"github.com/pkg/errors"
)

// Infinity marks an unbounded number of sweeps or samples.
const Infinity = uint64(math.MaxUint64)

// ReaderConfig is the part of the configuration that may change in the middle
// of an epoch.
type ReaderConfig struct {
	NumberOfWorkers        uint64
	WorkerRank             uint64
	MinibatchSizeInSamples uint64
}

// EpochConfig for StartEpoch.
type EpochConfig struct {
	ReaderConfig
	EpochIndex              uint64
	TotalEpochSizeInSamples uint64 // across all workers
	TotalEpochSizeInSweeps  uint64
}

// Options for the randomizer.
type Options struct {
	Multithreaded bool // materialize records in parallel
	Workers       int  // goroutines used when Multithreaded, runtime.NumCPU() if zero
}

func (c ReaderConfig) validate() error {
	if c.NumberOfWorkers == 0 {
		return errors.Wrap(ErrInvalidConfig, "number of workers must be positive")
	}
	if c.WorkerRank >= c.NumberOfWorkers {
		return errors.Wrapf(ErrInvalidConfig, "worker rank %d is out of range [0, %d)", c.WorkerRank, c.NumberOfWorkers)
	}
	return nil
}

// LocalSampleLimit splits a global sample limit between workers, the remainder
// goes to the lowest ranks.
func LocalSampleLimit(global, workers, rank uint64) uint64 {
	local := global / workers
	if global%workers > rank {
		local++
	}
	return local
}

func (c EpochConfig) normalize() (EpochConfig, error) {
	if c.EpochIndex != 0 {
		return c, errors.Wrapf(ErrUnsupportedEpoch, "epoch %d", c.EpochIndex)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	if c.TotalEpochSizeInSweeps == Infinity && c.TotalEpochSizeInSamples == Infinity {
		c.TotalEpochSizeInSweeps = 1
	}
	if c.TotalEpochSizeInSweeps == Infinity {
		if c.TotalEpochSizeInSamples == 0 {
			return c, errors.Wrap(ErrInvalidConfig, "epoch size in samples must be positive")
		}
		c.TotalEpochSizeInSamples = LocalSampleLimit(c.TotalEpochSizeInSamples, c.NumberOfWorkers, c.WorkerRank)
	}
	return c, nil
}
