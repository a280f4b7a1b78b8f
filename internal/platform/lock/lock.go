// Package lock provides short-lived named locks used to serialise destructive
// operations on a single record.
package lock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotObtained means another holder owns the key.
var ErrNotObtained = errors.New("lock not obtained")

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}
