// pkg/dataset/bwlimit.go

package dataset

import (
	"io"

	"github.com/juju/ratelimit"
)

type limitedReader struct {
	io.Reader
	r *ratelimit.Bucket
}

func (l *limitedReader) Read(buf []byte) (int, error) {
	n, err := l.Reader.Read(buf)
	if l.r != nil {
		l.r.Wait(int64(n))
	}
	return n, err
}

// newBucket returns a bucket for limit bytes per second, nil for no limit.
func newBucket(limit int64) *ratelimit.Bucket {
	if limit <= 0 {
		return nil
	}
	// there are overheads coming from the filesystem
	return ratelimit.NewBucketWithRate(float64(limit)*0.85, limit)
}
