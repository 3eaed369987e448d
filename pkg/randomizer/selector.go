// pkg/randomizer/selector.go

package randomizer

import "AveSeq/pkg/chunk"

// selectSequences walks the window from the cursor and takes sequences while
// they fit into maxSampleCount. The first sequence is always taken.
func (r *Randomizer) selectSequences(maxSampleCount uint64, mb *Minibatch) ([]chunk.Sequence, error) {
	if len(r.window) == 0 {
		return nil, ErrEmptyWindow
	}

	var sequences []chunk.Sequence
	var samples uint64
	for samples < maxSampleCount && !r.isEndReached() {
		sequence := r.window[r.position]
		if sequence.IsEndOfSweep() {
			if err := r.endOfSweep(mb); err != nil {
				return nil, err
			}
			continue
		}

		n := uint64(sequence.NumberOfSamples)
		if len(sequences) > 0 && samples+n > maxSampleCount {
			break
		}
		sequences = append(sequences, sequence)
		samples += n
		r.samplesSeen += n

		if err := r.advance(); err != nil {
			return nil, err
		}
	}

	mb.EndOfEpoch = r.isEndReached()
	return sequences, nil
}
