// pkg/chunk/cache.go

package chunk

import (
	"sort"

	"github.com/pkg/errors"
)

// Cache holds the chunks used by one minibatch. It is never updated in place:
// Rebuild derives the next cache and the caller swaps it in and releases the
// previous one.
type Cache struct {
	handles map[ID]*Handle
	hits    int
	misses  int
}

func NewCache() *Cache {
	return &Cache{handles: make(map[ID]*Handle)}
}

func (c *Cache) Get(id ID) (*Handle, bool) {
	h, ok := c.handles[id]
	return h, ok
}

func (c *Cache) Len() int {
	return len(c.handles)
}

// IDs returns the resident chunk ids in ascending order.
func (c *Cache) IDs() []ID {
	ids := make([]ID, 0, len(c.handles))
	for id := range c.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stats returns how many chunks the last Rebuild reused and loaded.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Rebuild returns a cache holding exactly the chunks in ids. Resident chunks are
// shared with c, the others are fetched through load.
func (c *Cache) Rebuild(ids []ID, load func(ID) (Chunk, error)) (*Cache, error) {
	next := NewCache()
	for _, id := range ids {
		if _, ok := next.handles[id]; ok {
			continue
		}
		if h, ok := c.handles[id]; ok {
			h.Acquire()
			next.handles[id] = h
			next.hits++
			continue
		}
		ck, err := load(id)
		if err != nil {
			next.Release()
			return nil, errors.Wrapf(err, "load chunk %d", id)
		}
		next.handles[id] = NewHandle(id, ck)
		next.misses++
		logger.Debugf("load chunk %d into cache", id)
	}
	return next, nil
}

// Release drops the references held by c.
func (c *Cache) Release() {
	for id, h := range c.handles {
		h.Release()
		delete(c.handles, id)
	}
}
