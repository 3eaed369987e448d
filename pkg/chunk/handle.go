// pkg/chunk/handle.go

package chunk

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Handle is a reference counted owner of a loaded chunk.
type Handle struct {
	refs  int32
	id    ID
	chunk Chunk
}

// NewHandle wraps c with a refcount of one.
func NewHandle(id ID, c Chunk) *Handle {
	return &Handle{refs: 1, id: id, chunk: c}
}

func (h *Handle) ID() ID {
	return h.id
}

func (h *Handle) Refs() int32 {
	return atomic.LoadInt32(&h.refs)
}

// Acquire increase the refcount
func (h *Handle) Acquire() {
	atomic.AddInt32(&h.refs, 1)
}

// Release decreases the refcount, the chunk is closed when it drops to zero.
func (h *Handle) Release() {
	refs := atomic.AddInt32(&h.refs, -1)
	if refs < 0 {
		logger.Errorf("refcount of chunk %d is negative: %d", h.id, refs)
		return
	}
	if refs == 0 {
		if c, ok := h.chunk.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warnf("close chunk %d: %s", h.id, err)
			}
		}
		h.chunk = nil
	}
}

func (h *Handle) ReadRecord(index uint64) ([]Field, error) {
	if h.chunk == nil {
		return nil, errors.Errorf("chunk %d is already released", h.id)
	}
	return h.chunk.ReadRecord(index)
}
