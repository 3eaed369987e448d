// pkg/randomizer/materialize.go

package randomizer

import (
	"runtime"
	"sync"

	"AveSeq/pkg/chunk"
	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
)

// materialize loads the chunks of sequences, replacing the chunk cache, and
// reads one field per stream for every sequence.
func (r *Randomizer) materialize(sequences []chunk.Sequence) ([][]chunk.Field, error) {
	ids := make([]chunk.ID, len(sequences))
	for i, s := range sequences {
		ids[i] = s.ChunkID
	}
	next, err := r.chunks.Rebuild(ids, r.deserializer.GetChunk)
	if err != nil {
		return nil, err
	}
	old := r.chunks
	r.chunks = next
	old.Release()

	hits, misses := next.Stats()
	r.stats.ChunkHits += uint64(hits)
	r.stats.ChunkLoads += uint64(misses)

	data := make([][]chunk.Field, len(r.streams))
	for j := range data {
		data[j] = make([]chunk.Field, len(sequences))
	}
	cache := next
	process := func(i int) error {
		s := sequences[i]
		h, ok := cache.Get(s.ChunkID)
		if !ok {
			return errors.Wrapf(ErrChunkNotCached, "chunk %d", s.ChunkID)
		}
		fields, err := h.ReadRecord(s.IndexInChunk)
		if err != nil {
			return errors.Wrapf(err, "read sequence %d of chunk %d", s.IndexInChunk, s.ChunkID)
		}
		if len(fields) != len(data) {
			return errors.Wrapf(ErrFieldCountMatch, "sequence %d of chunk %d has %d fields, expected %d",
				s.IndexInChunk, s.ChunkID, len(fields), len(data))
		}
		for j, f := range fields {
			data[j][i] = f
		}
		return nil
	}

	if r.opts.Multithreaded {
		err = runParallel(len(sequences), r.opts.Workers, process)
	} else {
		for i := range sequences {
			if err = capture(process, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// faultHolder keeps the first error reported by concurrent tasks.
type faultHolder struct {
	once sync.Once
	err  error
}

func (f *faultHolder) set(err error) {
	f.once.Do(func() { f.err = err })
}

// capture runs process(i), turning a panic into an error.
func capture(process func(int) error, i int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("sequence %d: panic: %v", i, p)
		}
	}()
	return process(i)
}

// runParallel calls process for every index in [0, n) from a pool of workers.
// All indexes are processed even if some fail; the first failure is returned.
func runParallel(n, workers int, process func(int) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = utils.Min(workers, n)

	todo := make(chan int, n)
	for i := 0; i < n; i++ {
		todo <- i
	}
	close(todo)

	var fault faultHolder
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range todo {
				if err := capture(process, i); err != nil {
					fault.set(err)
				}
			}
		}()
	}
	wg.Wait()
	return fault.err
}
