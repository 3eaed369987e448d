// pkg/checkpoint/file.go

package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"AveSeq/pkg/randomizer"

	"github.com/pkg/errors"
)

const suffix = ".json"

type fileStore struct {
	dir string
}

func init() {
	Register("file", newFileStore)
}

func newFileStore(driver, addr string, conf *Config) (Store, error) {
	dir := addr
	if conf.Prefix != "" {
		dir = filepath.Join(dir, conf.Prefix)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) Name() string {
	return "file://" + s.dir
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+suffix)
}

func (s *fileStore) Save(ctx context.Context, name string, st randomizer.State) (*Checkpoint, error) {
	c, err := newCheckpoint(name, st)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "encode checkpoint %s", name)
	}
	f, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, s.path(name))
	}
	if err != nil {
		_ = os.Remove(tmp)
		return nil, errors.Wrapf(err, "save checkpoint %s", name)
	}
	logger.Debugf("saved checkpoint %s (%s) to %s", name, c.UUID, s.dir)
	return c, nil
}

func (s *fileStore) Load(ctx context.Context, name string) (*Checkpoint, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s in %s", name, s.dir)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (s *fileStore) List(ctx context.Context) ([]*Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var cs []*Checkpoint
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		c, err := s.Load(ctx, strings.TrimSuffix(name, suffix))
		if err != nil {
			logger.Warnf("skip checkpoint %s: %s", name, err)
			continue
		}
		cs = append(cs, c)
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Created.Before(cs[j].Created) })
	return cs, nil
}

func (s *fileStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNotFound, "%s in %s", name, s.dir)
	}
	return err
}

func (s *fileStore) Close() error {
	return nil
}
