package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// defaultLockTTL is a lease, not a cap on cycle length: the service extends it
// before each job.
const defaultLockTTL = 30 * time.Minute

// ErrLockLost is returned by Extend when another instance now holds the lock.
var ErrLockLost = errors.New("cron lock lost")

// Lock coordinates exclusive cron runs across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Extender is a Lock whose lease can be renewed mid-cycle.
type Extender interface {
	Extend(ctx context.Context) error
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
	ExpireIfEquals(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// RedisLock is a leased lock on one redis key. The value is an owner token
// (hostname plus a random id) so only the holder can renew or drop it.
type RedisLock struct {
	store leaseStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := newOwnerToken()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Extend renews the lease for another ttl.
func (l *RedisLock) Extend(ctx context.Context) error {
	if l.token == "" {
		return ErrLockLost
	}
	held, err := l.store.ExpireIfEquals(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	if !held {
		l.token = ""
		return ErrLockLost
	}
	return nil
}

// Release drops the lock if this instance still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	if _, err := l.store.DeleteIfEquals(ctx, l.key, l.token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	l.token = ""
	return nil
}

// Owner is the token stored by the last successful Acquire.
func (l *RedisLock) Owner() string {
	return l.token
}

func newOwnerToken() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "/" + uuid.NewString()
	}
	return uuid.NewString()
}
