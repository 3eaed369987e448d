// pkg/dataset/manifest.go

package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"AveSeq/pkg/chunk"

	"github.com/pkg/errors"
)

const manifestName = "manifest.json"

// Manifest describes a dataset directory.
type Manifest struct {
	UUID        string      `json:"uuid"`
	Streams     []string    `json:"streams"`
	Compression string      `json:"compression"`
	Chunks      []ChunkInfo `json:"chunks"`
}

// ChunkInfo lists the samples of every sequence stored in File.
type ChunkInfo struct {
	ID      chunk.ID `json:"id"`
	File    string   `json:"file"`
	Samples []uint32 `json:"samples"`
}

func (c *ChunkInfo) totalSamples() uint64 {
	var n uint64
	for _, s := range c.Samples {
		n += uint64(s)
	}
	return n
}

func loadManifest(dir string) (*Manifest, error) {
	body, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest of %s", dir)
	}
	var m Manifest
	if err = json.Unmarshal(body, &m); err != nil {
		return nil, errors.Wrapf(err, "corrupted manifest of %s", dir)
	}
	return &m, nil
}

func (m *Manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, manifestName+".tmp")
	if err = os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, manifestName))
}
