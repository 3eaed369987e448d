// pkg/randomizer/accesslog.go

package randomizer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"AveSeq/pkg/utils"
)

const slowOperation = time.Second * 10

// AccessLog streams one line per operation of a randomizer. Lines are dropped
// while the buffer of the reader is full.
type AccessLog struct {
	sync.Mutex
	r      *Randomizer
	buffer chan []byte
	last   []byte
	closed chan struct{}
}

func (r *Randomizer) logit(start time.Time, format string, args ...interface{}) {
	used := time.Since(start)
	r.logMu.Lock()
	defer r.logMu.Unlock()
	if len(r.readers) == 0 && used < slowOperation {
		return
	}

	op := fmt.Sprintf(format, args...)
	op += fmt.Sprintf(" <%.6f>", used.Seconds())
	if used >= slowOperation {
		logger.Infof("slow operation: %s", op)
	}
	line := []byte(fmt.Sprintf("%s %s\n", utils.Now().Format("2006.01.02 15:04:05.000000"), op))
	for a := range r.readers {
		select {
		case a.buffer <- line:
		default:
		}
	}
}

// OpenAccessLog subscribes to the operations, keeping up to size unread lines.
func (r *Randomizer) OpenAccessLog(size int) *AccessLog {
	if size <= 0 {
		size = 10240
	}
	a := &AccessLog{r: r, buffer: make(chan []byte, size), closed: make(chan struct{})}
	r.logMu.Lock()
	defer r.logMu.Unlock()
	r.readers[a] = struct{}{}
	return a
}

// Close unsubscribes, Read returns io.EOF once the buffered lines are consumed.
func (a *AccessLog) Close() error {
	a.r.logMu.Lock()
	defer a.r.logMu.Unlock()
	if _, ok := a.r.readers[a]; ok {
		delete(a.r.readers, a)
		close(a.closed)
	}
	return nil
}

// Read waits a second at most for buf to fill up.
func (a *AccessLog) Read(buf []byte) (int, error) {
	a.Lock()
	defer a.Unlock()
	var n int
	if len(a.last) > 0 {
		n = copy(buf, a.last)
		a.last = a.last[n:]
	}
	var t = time.NewTimer(time.Second)
	defer t.Stop()
	for n < len(buf) {
		select {
		case line := <-a.buffer:
			if a.fill(buf, &n, line) {
				return n, nil
			}
		case <-a.closed:
			for n < len(buf) {
				select {
				case line := <-a.buffer:
					if a.fill(buf, &n, line) {
						return n, nil
					}
				default:
					if n == 0 {
						return 0, io.EOF
					}
					return n, nil
				}
			}
			return n, nil
		case <-t.C:
			return n, nil
		}
	}
	return n, nil
}

// fill copies line into buf, it reports whether buf is full.
func (a *AccessLog) fill(buf []byte, n *int, line []byte) bool {
	l := copy(buf[*n:], line)
	*n += l
	if l < len(line) {
		a.last = line[l:]
		return true
	}
	return false
}
