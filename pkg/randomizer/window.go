// pkg/randomizer/window.go

package randomizer

import (
	"AveSeq/pkg/chunk"
	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
)

// Window returns a copy of the current sequence window.
func (r *Randomizer) Window() []chunk.Sequence {
	return append([]chunk.Sequence(nil), r.window...)
}

func (r *Randomizer) PositionInWindow() int {
	return r.position
}

// advance moves the cursor to the next sequence, refilling the window when the
// current one is exhausted.
func (r *Randomizer) advance() error {
	if r.position+1 < len(r.window) {
		r.position++
		return nil
	}

	r.window = nil
	r.captureState()
	if err := r.refill(); err != nil {
		return err
	}
	r.position = 0
	return nil
}

func (r *Randomizer) refill() error {
	window, err := r.nextWindow()
	if err != nil {
		return err
	}
	r.window = window
	r.stats.Refills++
	return nil
}

// nextWindow asks the policy for the next window without installing it.
func (r *Randomizer) nextWindow() ([]chunk.Sequence, error) {
	start := utils.Now()
	window, err := r.policy.RefillWindow(r.config.ReaderConfig)
	if err != nil {
		return nil, errors.Wrap(err, "refill sequence window")
	}
	if len(window) == 0 {
		return nil, ErrEmptyWindow
	}
	logger.Debugf("refilled window with %d sequences", len(window))
	r.logit(start, "refill: %d sequences", len(window))
	return window, nil
}
