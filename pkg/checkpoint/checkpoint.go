// pkg/checkpoint/checkpoint.go

package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"AveSeq/pkg/randomizer"
	"AveSeq/pkg/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var logger = utils.GetLogger("aveseq")

var (
	ErrNotFound    = errors.New("checkpoint not found")
	ErrInvalidName = errors.New("invalid checkpoint name")
)

// Checkpoint is a named randomizer state.
type Checkpoint struct {
	UUID    string           `json:"uuid"`
	Name    string           `json:"name"`
	Created time.Time        `json:"created"`
	State   randomizer.State `json:"state"`
}

// Config for stores.
type Config struct {
	Retries int
	Prefix  string // namespace of the keys in shared stores
}

// Store keeps checkpoints by name, saving a name again replaces it.
type Store interface {
	Name() string
	Save(ctx context.Context, name string, st randomizer.State) (*Checkpoint, error)
	Load(ctx context.Context, name string) (*Checkpoint, error)
	// List returns the stored checkpoints, oldest first.
	List(ctx context.Context) ([]*Checkpoint, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Creator opens a store at addr, the url without the scheme.
type Creator func(driver, addr string, conf *Config) (Store, error)

var (
	driversMu sync.Mutex
	drivers   = make(map[string]Creator)
)

func Register(name string, creator Creator) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = creator
}

// NewStore opens the store for uri. A uri without scheme is a local directory.
func NewStore(uri string, conf *Config) (Store, error) {
	if conf == nil {
		conf = &Config{}
	}
	driver, addr := "file", uri
	if p := strings.Index(uri, "://"); p > 0 {
		driver, addr = uri[:p], uri[p+3:]
	}
	driversMu.Lock()
	creator, ok := drivers[driver]
	driversMu.Unlock()
	if !ok {
		return nil, errors.Errorf("invalid checkpoint store %q: unsupported scheme %q", uri, driver)
	}
	return creator(driver, addr, conf)
}

func newCheckpoint(name string, st randomizer.State) (*Checkpoint, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return &Checkpoint{
		UUID:    uuid.New().String(),
		Name:    name,
		Created: utils.Now().UTC(),
		State:   st.Copy(),
	}, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// decode keeps the numbers of the state as json.Number, a float64 can not hold
// every sample count.
func decode(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "corrupted checkpoint")
	}
	if c.State == nil {
		c.State = randomizer.State{}
	}
	return &c, nil
}
