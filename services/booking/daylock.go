// File: services/booking/daylock.go
package booking

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DayLocker serializes all slot mutations for one calendar day. Acquire
// returns a release token; Release is a no-op when the token no longer
// owns the lock (it expired and someone else took it).
type DayLocker interface {
	Acquire(ctx context.Context, dayID string) (token string, err error)
	Release(ctx context.Context, dayID, token string) error
}

const (
	lockKeyPrefix  = "daylock:"
	lockTTL        = 10 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// releaseScript deletes the lock key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisDayLocker implements DayLocker with SET NX and a token-checked
// release, so a slow holder can never delete a successor's lock.
type RedisDayLocker struct {
	Client *redis.Client
}

func NewRedisDayLocker(client *redis.Client) *RedisDayLocker {
	return &RedisDayLocker{Client: client}
}

func (l *RedisDayLocker) Acquire(ctx context.Context, dayID string) (string, error) {
	token := uuid.New().String()
	key := lockKeyPrefix + dayID

	for {
		ok, err := l.Client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}

func (l *RedisDayLocker) Release(ctx context.Context, dayID, token string) error {
	return releaseScript.Run(ctx, l.Client, []string{lockKeyPrefix + dayID}, token).Err()
}

// MutexDayLocker is an in-process DayLocker for tests and single-node
// deployments without redis.
type MutexDayLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMutexDayLocker() *MutexDayLocker {
	return &MutexDayLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MutexDayLocker) Acquire(ctx context.Context, dayID string) (string, error) {
	l.mu.Lock()
	m, ok := l.locks[dayID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[dayID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return dayID, nil
}

func (l *MutexDayLocker) Release(_ context.Context, dayID, _ string) error {
	l.mu.Lock()
	m, ok := l.locks[dayID]
	l.mu.Unlock()
	if ok {
		m.Unlock()
	}
	return nil
}
