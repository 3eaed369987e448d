// pkg/chunk/singleflight.go

package chunk

import "sync"

type request struct {
	wg  sync.WaitGroup
	val Chunk
	err error
}

// Controller collapses concurrent loads of the same chunk into one.
type Controller struct {
	sync.Mutex
	rs map[ID]*request
}

func (con *Controller) Execute(id ID, fn func() (Chunk, error)) (Chunk, error) {
	con.Lock()
	if con.rs == nil {
		con.rs = make(map[ID]*request)
	}
	if c, ok := con.rs[id]; ok {
		con.Unlock()
		c.wg.Wait()
		return c.val, c.err
	}
	c := new(request)
	c.wg.Add(1)
	con.rs[id] = c
	con.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	con.Lock()
	delete(con.rs, id)
	con.Unlock()

	return c.val, c.err
}
