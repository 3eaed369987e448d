// pkg/checkpoint/redis.go

package checkpoint

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"

	"AveSeq/pkg/randomizer"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	rdb    redis.UniversalClient
	addr   string
	prefix string

	save   *redis.Script
	delete *redis.Script
}

func init() {
	Register("redis", newRedisStore)
	Register("rediss", newRedisStore)
}

// newRedisStore returns a checkpoint store using Redis. A comma separated host
// list is read as master name followed by sentinels.
func newRedisStore(driver, addr string, conf *Config) (Store, error) {
	uri := driver + "://" + addr
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", uri)
	}
	if opt.Password == "" && os.Getenv("REDIS_PASSWORD") != "" {
		opt.Password = os.Getenv("REDIS_PASSWORD")
	}

	var rdb redis.UniversalClient
	if strings.Contains(opt.Addr, ",") {
		var fopt redis.FailoverOptions
		ps := strings.Split(opt.Addr, ",")
		fopt.MasterName = ps[0]
		fopt.SentinelAddrs = ps[1:]
		for i, saddr := range fopt.SentinelAddrs {
			h, p, err := net.SplitHostPort(saddr)
			if err != nil {
				fopt.SentinelAddrs[i] = net.JoinHostPort(saddr, "26379")
			} else if p == "" {
				fopt.SentinelAddrs[i] = net.JoinHostPort(h, "26379")
			}
		}
		fopt.Username = opt.Username
		fopt.Password = opt.Password
		fopt.SentinelPassword = os.Getenv("SENTINEL_PASSWORD")
		fopt.DB = opt.DB
		fopt.TLSConfig = opt.TLSConfig
		fopt.MaxRetries = conf.Retries
		fopt.MinRetryBackoff = time.Millisecond * 100
		fopt.MaxRetryBackoff = time.Minute
		fopt.ReadTimeout = time.Second * 30
		fopt.WriteTimeout = time.Second * 5
		rdb = redis.NewFailoverClient(&fopt)
	} else {
		opt.MaxRetries = conf.Retries
		opt.MinRetryBackoff = time.Millisecond * 100
		opt.MaxRetryBackoff = time.Minute
		opt.ReadTimeout = time.Second * 30
		opt.WriteTimeout = time.Second * 5
		rdb = redis.NewClient(opt)
	}

	s := &redisStore{
		rdb:    rdb,
		addr:   opt.Addr,
		prefix: conf.Prefix,
		save:   redis.NewScript(scriptSave),
		delete: redis.NewScript(scriptDelete),
	}
	start := time.Now()
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", opt.Addr)
	}
	logger.Infof("Ping redis: %s", time.Since(start))
	return s, nil
}

func (s *redisStore) Name() string {
	return "redis://" + s.addr
}

func (s *redisStore) key(name string) string {
	return s.prefix + "ckpt:" + name
}

func (s *redisStore) indexKey() string {
	return s.prefix + "checkpoints"
}

func (s *redisStore) Save(ctx context.Context, name string, st randomizer.State) (*Checkpoint, error) {
	c, err := newCheckpoint(name, st)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrapf(err, "encode checkpoint %s", name)
	}
	n, err := s.save.Run(ctx, s.rdb, []string{s.key(name), s.indexKey()}, data, c.Created.UnixNano(), name).Int64()
	if err != nil {
		return nil, errors.Wrapf(err, "save checkpoint %s", name)
	}
	logger.Debugf("saved checkpoint %s (%s), %d checkpoints in %s", name, c.UUID, n, s.addr)
	return c, nil
}

func (s *redisStore) Load(ctx context.Context, name string) (*Checkpoint, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := s.rdb.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(ErrNotFound, "%s in %s", name, s.addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load checkpoint %s", name)
	}
	return decode(data)
}

func (s *redisStore) List(ctx context.Context) ([]*Checkpoint, error) {
	names, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.key(name)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var cs []*Checkpoint
	for i, v := range vals {
		body, ok := v.(string)
		if !ok {
			logger.Warnf("checkpoint %s is in the index but has no body", names[i])
			continue
		}
		c, err := decode([]byte(body))
		if err != nil {
			logger.Warnf("skip checkpoint %s: %s", names[i], err)
			continue
		}
		cs = append(cs, c)
	}
	return cs, nil
}

func (s *redisStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	n, err := s.delete.Run(ctx, s.rdb, []string{s.key(name), s.indexKey()}, name).Int64()
	if err != nil {
		return errors.Wrapf(err, "delete checkpoint %s", name)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%s in %s", name, s.addr)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
