package lock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "perfcycle:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every replica that talks to the same server.
type Redis struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedis(rdb *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{rdb: rdb, logger: logger}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return rdb, nil
}

func (r *Redis) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "obtain lock %s", key)
	}
	if !ok {
		return nil, ErrNotObtained
	}
	return &redisLease{owner: r, key: keyPrefix + key, token: token}, nil
}

type redisLease struct {
	owner *Redis
	key   string
	token string
}

// Release deletes the key only if it still carries this lease's token.
func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.owner.rdb, []string{l.key}, l.token).Int()
	if err != nil {
		return errors.Wrapf(err, "release lock %s", l.key)
	}
	if n == 0 {
		l.owner.logger.Warn("lock expired before release", zap.String("key", l.key))
	}
	return nil
}
