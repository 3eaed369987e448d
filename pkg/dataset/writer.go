// pkg/dataset/writer.go

package dataset

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"AveSeq/pkg/chunk"
	"AveSeq/pkg/compress"
	"AveSeq/pkg/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Writer creates a dataset directory chunk by chunk. The manifest is written
// by Close.
type Writer struct {
	dir        string
	manifest   Manifest
	compressor compress.Compressor
}

func Create(dir string, streams []string, compression string) (*Writer, error) {
	if len(streams) == 0 {
		return nil, errors.New("at least one stream is needed")
	}
	c := compress.NewCompressor(compression)
	if c == nil {
		return nil, errors.Errorf("unsupported compress algorithm: %s", compression)
	}
	if utils.Exists(filepath.Join(dir, manifestName)) {
		return nil, errors.Errorf("dataset %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Writer{
		dir: dir,
		manifest: Manifest{
			UUID:        uuid.New().String(),
			Streams:     streams,
			Compression: compression,
		},
		compressor: c,
	}, nil
}

// WriteChunk stores records as the next chunk.
func (w *Writer) WriteChunk(rs []Record) (chunk.ID, error) {
	id := chunk.ID(len(w.manifest.Chunks))
	if id == chunk.MaxID {
		return 0, errors.New("too many chunks")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	info := ChunkInfo{ID: id, File: fmt.Sprintf("chunk-%06d.bin", id), Samples: make([]uint32, len(rs))}
	for i, rec := range rs {
		if len(rec.Fields) != len(w.manifest.Streams) {
			return 0, errors.Errorf("sequence %d has %d fields, expected %d", i, len(rec.Fields), len(w.manifest.Streams))
		}
		if err := enc.Encode(rec); err != nil {
			return 0, err
		}
		info.Samples[i] = rec.Samples
	}

	raw := buf.Bytes()
	if len(raw) > maxChunkSize {
		return 0, errors.Errorf("chunk %d is too large: %d bytes", id, len(raw))
	}
	out := make([]byte, 4+w.compressor.CompressBound(len(raw)))
	binary.BigEndian.PutUint32(out, uint32(len(raw)))
	var n int
	if len(raw) > 0 {
		var err error
		if n, err = w.compressor.Compress(out[4:], raw); err != nil {
			return 0, errors.Wrapf(err, "compress chunk %d", id)
		}
	}
	if err := os.WriteFile(filepath.Join(w.dir, info.File), out[:4+n], 0644); err != nil {
		return 0, err
	}
	w.manifest.Chunks = append(w.manifest.Chunks, info)
	return id, nil
}

func (w *Writer) Close() error {
	return w.manifest.save(w.dir)
}
