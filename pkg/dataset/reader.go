// pkg/dataset/reader.go

package dataset

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"AveSeq/pkg/chunk"
	"AveSeq/pkg/compress"
	"AveSeq/pkg/utils"

	"github.com/juju/ratelimit"
	"github.com/pkg/errors"
)

var logger = utils.GetLogger("aveseq")

// maxChunkSize bounds the decoded size of a chunk file.
const maxChunkSize = 1 << 30

// Config of a dataset reader.
type Config struct {
	Dir           string
	DownloadLimit int64 // bytes per second, 0 means unlimited
}

// Reader is a deserializer over a dataset directory.
type Reader struct {
	conf       Config
	manifest   *Manifest
	compressor compress.Compressor
	limit      *ratelimit.Bucket
	index      map[chunk.ID]*ChunkInfo
	flight     chunk.Controller
}

// Open loads the manifest of the dataset in conf.Dir.
func Open(conf Config) (*Reader, error) {
	m, err := loadManifest(conf.Dir)
	if err != nil {
		return nil, err
	}
	c := compress.NewCompressor(m.Compression)
	if c == nil {
		return nil, errors.Errorf("unsupported compress algorithm: %s", m.Compression)
	}
	r := &Reader{
		conf:       conf,
		manifest:   m,
		compressor: c,
		limit:      newBucket(conf.DownloadLimit),
		index:      make(map[chunk.ID]*ChunkInfo, len(m.Chunks)),
	}
	for i := range m.Chunks {
		info := &m.Chunks[i]
		if _, ok := r.index[info.ID]; ok {
			return nil, errors.Errorf("duplicated chunk %d in %s", info.ID, conf.Dir)
		}
		if info.ID == chunk.MaxID {
			return nil, errors.Errorf("chunk id %d is reserved", info.ID)
		}
		r.index[info.ID] = info
	}
	logger.Debugf("open dataset %s (%s): %d chunks, %d streams, %s",
		conf.Dir, m.UUID, len(m.Chunks), len(m.Streams), c.Name())
	return r, nil
}

func (r *Reader) Manifest() *Manifest {
	return r.manifest
}

func (r *Reader) Streams() []chunk.Stream {
	return streamsOf(r.manifest.Streams)
}

func (r *Reader) ChunkDescriptions() ([]chunk.Description, error) {
	ds := make([]chunk.Description, len(r.manifest.Chunks))
	for i := range r.manifest.Chunks {
		info := &r.manifest.Chunks[i]
		ds[i] = chunk.Description{
			ID:                info.ID,
			NumberOfSequences: uint32(len(info.Samples)),
			NumberOfSamples:   info.totalSamples(),
		}
	}
	return ds, nil
}

func (r *Reader) SequenceInfos(id chunk.ID) ([]chunk.Sequence, error) {
	info, ok := r.index[id]
	if !ok {
		return nil, errors.Errorf("unknown chunk %d", id)
	}
	return sequenceInfos(id, info.Samples), nil
}

// GetChunk reads and decodes the file of chunk id. Concurrent loads of the
// same chunk share one read.
func (r *Reader) GetChunk(id chunk.ID) (chunk.Chunk, error) {
	info, ok := r.index[id]
	if !ok {
		return nil, errors.Errorf("unknown chunk %d", id)
	}
	return r.flight.Execute(id, func() (chunk.Chunk, error) {
		return r.load(info)
	})
}

func (r *Reader) load(info *ChunkInfo) (chunk.Chunk, error) {
	path := filepath.Join(r.conf.Dir, info.File)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open chunk %d", info.ID)
	}
	defer f.Close()

	payload, err := io.ReadAll(&limitedReader{f, r.limit})
	if err != nil {
		return nil, errors.Wrapf(err, "read chunk %d", info.ID)
	}
	if len(payload) < 4 {
		return nil, errors.Errorf("chunk %d is truncated: %d bytes", info.ID, len(payload))
	}
	size := binary.BigEndian.Uint32(payload[:4])
	if size > maxChunkSize || (r.compressor.Name() == "Noop" && int(size) != len(payload)-4) {
		return nil, errors.Errorf("chunk %d does not match its header: %d bytes from a payload of %d", info.ID, size, len(payload)-4)
	}
	raw := make([]byte, size)
	if size > 0 {
		n, err := r.compressor.Decompress(raw, payload[4:])
		if err != nil {
			return nil, errors.Wrapf(err, "decompress chunk %d", info.ID)
		}
		if n != int(size) {
			return nil, errors.Errorf("chunk %d: decompressed %d bytes, expected %d", info.ID, n, size)
		}
	}

	rs := make(records, 0, len(info.Samples))
	dec := json.NewDecoder(bytes.NewReader(raw))
	for {
		var rec Record
		if err = dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "decode sequence %d of chunk %d", len(rs), info.ID)
		}
		if len(rs) >= len(info.Samples) || rec.Samples != info.Samples[len(rs)] {
			return nil, errors.Errorf("chunk %d does not match the manifest at sequence %d", info.ID, len(rs))
		}
		rs = append(rs, rec)
	}
	if len(rs) != len(info.Samples) {
		return nil, errors.Errorf("chunk %d has %d sequences, expected %d", info.ID, len(rs), len(info.Samples))
	}
	logger.Debugf("loaded chunk %d: %d sequences, %d bytes", info.ID, len(rs), len(payload))
	return rs, nil
}
