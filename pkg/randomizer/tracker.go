// pkg/randomizer/tracker.go

package randomizer

// StartEpoch normalizes the limits of the epoch and fills the first window.
func (r *Randomizer) StartEpoch(cfg EpochConfig) error {
	config, err := cfg.normalize()
	if err != nil {
		return err
	}
	r.config = config
	r.started = true
	if config.TotalEpochSizeInSweeps == Infinity {
		logger.Infof("start epoch %d: %d local samples, worker %d of %d",
			config.EpochIndex, config.TotalEpochSizeInSamples, config.WorkerRank, config.NumberOfWorkers)
	} else {
		logger.Infof("start epoch %d: %d sweeps, worker %d of %d",
			config.EpochIndex, config.TotalEpochSizeInSweeps, config.WorkerRank, config.NumberOfWorkers)
	}

	r.window = nil
	r.position = 0
	r.captureState()
	return r.refill()
}

func (r *Randomizer) isEndReached() bool {
	if r.config.TotalEpochSizeInSweeps != Infinity {
		return r.sweepIndex >= r.config.TotalEpochSizeInSweeps
	}
	return r.samplesSeen >= r.config.TotalEpochSizeInSamples
}

// IsEndReached reports whether the epoch limits are met.
func (r *Randomizer) IsEndReached() bool {
	return r.started && r.isEndReached()
}

func (r *Randomizer) SweepIndex() uint64 {
	return r.sweepIndex
}

// SamplesSeen is the number of samples dispatched since the epoch started.
func (r *Randomizer) SamplesSeen() uint64 {
	return r.samplesSeen
}

func (r *Randomizer) endOfSweep(mb *Minibatch) error {
	r.sweepIndex++
	mb.EndOfSweep = true
	logger.Debugf("end of sweep %d after %d samples", r.sweepIndex-1, r.samplesSeen)
	return r.advance()
}
