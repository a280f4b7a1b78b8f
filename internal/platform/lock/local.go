package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process Locker for single-replica deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocal() *Local {
	return &Local{held: map[string]time.Time{}, now: time.Now}
}

func (l *Local) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrNotObtained
	}
	expires := now.Add(ttl)
	l.held[key] = expires
	return &localLease{owner: l, key: key, expires: expires}, nil
}

type localLease struct {
	owner   *Local
	key     string
	expires time.Time
	once    sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		defer l.owner.mu.Unlock()
		// a later holder may own the key once ours expired
		if current, ok := l.owner.held[l.key]; ok && current.Equal(l.expires) {
			delete(l.owner.held, l.key)
		}
	})
	return nil
}
