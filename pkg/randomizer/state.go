// pkg/randomizer/state.go

package randomizer

import (
	"encoding/json"
	"math"
	"strconv"

	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
)

const (
	keySweepIndex  = "sweepIndex"
	keyPosition    = "currentSequencePositionInWindow"
	keySamplesSeen = "numberOfSamplesSeenSoFar"
)

// State is a checkpoint of the reading position. Values are scalars; the keys
// not owned by the randomizer belong to the policy.
type State map[string]interface{}

func (s State) Copy() State {
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Uint64 returns the value of key, accepting any integral encoding including
// the ones produced by a JSON round trip.
func (s State) Uint64(key string) (uint64, error) {
	v, ok := s[key]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidState, "missing %q", key)
	}
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint32:
		return uint64(n), nil
	case uint:
		return uint64(n), nil
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	case int32:
		if n >= 0 {
			return uint64(n), nil
		}
	case float64:
		if n >= 0 && n < math.MaxUint64 && n == math.Trunc(n) {
			return uint64(n), nil
		}
	case json.Number:
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, nil
		}
	case string:
		if u, err := strconv.ParseUint(n, 10, 64); err == nil {
			return u, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidState, "%q is not an unsigned integer: %v (%T)", key, v, v)
}

// Int64 is like Uint64 for signed values.
func (s State) Int64(key string) (int64, error) {
	v, ok := s[key]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidState, "missing %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case float64:
		if n >= math.MinInt64 && n < math.MaxInt64 && n == math.Trunc(n) {
			return int64(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidState, "%q is not an integer: %v (%T)", key, v, v)
}

// captureState remembers the policy position before a refill, it is the only
// point where the policy state is consistent with the window.
func (r *Randomizer) captureState() {
	st := r.extra.Copy()
	for k, v := range r.policy.InnerState() {
		st[k] = v
	}
	r.currentState = st
}

// GetState returns the state that SetState needs to continue from the current
// position.
func (r *Randomizer) GetState() State {
	st := r.currentState.Copy()
	st[keySweepIndex] = r.sweepIndex
	st[keyPosition] = uint64(r.position)
	st[keySamplesSeen] = r.samplesSeen
	return st
}

// SetState restores a state returned by GetState. The window is derived again
// from the policy state. Nothing changes if the state is rejected.
func (r *Randomizer) SetState(st State) error {
	start := utils.Now()
	if !r.started {
		return ErrNotStarted
	}
	sweepIndex, err := st.Uint64(keySweepIndex)
	if err != nil {
		return err
	}
	samplesSeen, err := st.Uint64(keySamplesSeen)
	if err != nil {
		return err
	}
	position, err := st.Uint64(keyPosition)
	if err != nil {
		return err
	}
	prev := r.policy.InnerState()
	if err = r.policy.SetState(st); err != nil {
		r.rollbackPolicy(prev)
		return errors.Wrap(err, "restore policy state")
	}

	extra := st.Copy()
	captured := extra.Copy()
	for k, v := range r.policy.InnerState() {
		captured[k] = v
	}
	window, err := r.nextWindow()
	if err != nil {
		r.rollbackPolicy(prev)
		return err
	}
	if position >= uint64(len(window)) {
		r.rollbackPolicy(prev)
		return errors.Wrapf(ErrInvalidState, "position %d is beyond the window of %d sequences", position, len(window))
	}

	r.sweepIndex = sweepIndex
	r.samplesSeen = samplesSeen
	r.extra = extra
	r.currentState = captured
	r.window = window
	r.position = int(position)
	r.stats.Refills++
	logger.Debugf("restored state: sweep %d, samples %d, position %d", sweepIndex, samplesSeen, position)
	r.logit(start, "restore: sweep %d, seen %d, position %d", sweepIndex, samplesSeen, position)
	return nil
}

// rollbackPolicy puts the policy back where it was before a rejected SetState.
func (r *Randomizer) rollbackPolicy(prev State) {
	if err := r.policy.SetState(prev); err != nil {
		logger.Errorf("roll back policy state: %s", err)
	}
}
