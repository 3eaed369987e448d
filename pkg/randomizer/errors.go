// pkg/randomizer/errors.go

package randomizer

import "github.com/pkg/errors"

// Configuration errors.
var (
	ErrNoChunks           = errors.New("expected input to contain samples, but the number of chunks is 0")
	ErrNoStreams          = errors.New("deserializer declares no streams")
	ErrUnsupportedEpoch   = errors.New("only the first epoch can be started")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidSampleCount = errors.New("invalid sample count")
	ErrNotStarted         = errors.New("epoch is not started")
	ErrInvalidState       = errors.New("invalid state")
)

// Internal consistency errors, these indicate a bug.
var (
	ErrEmptyWindow     = errors.New("sequence window is empty after refill")
	ErrChunkNotCached  = errors.New("chunk is not in the cache")
	ErrFieldCountMatch = errors.New("number of fields does not match number of streams")
)
