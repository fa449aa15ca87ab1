package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// SessionLocker serializes mutations of one session. The returned unlock
// function must be called exactly once.
type SessionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// releaseScript deletes the lock only if it is still held by this token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker creates a lock shared by every service replica. ttl bounds
// how long a crashed holder can block others; wait bounds how long Lock
// retries before giving up.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) SessionLocker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

func (l *redisLocker) Lock(parent context.Context, key string) (func(), error) {
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(parent, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, waitError(parent, key)
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				releaseCtx, done := context.WithTimeout(context.Background(), time.Second)
				defer done()
				_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, waitError(parent, key)
		case <-ticker.C:
		}
	}
}

// waitError reports why waiting for key stopped: the caller's own context
// ending is returned as is, otherwise the wait period ran out.
func waitError(parent context.Context, key string) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("waiting for lock %s: %w", key, err)
	}
	return fmt.Errorf("%w: %s", ErrLockTimeout, key)
}

type memorySlot struct {
	ch   chan struct{}
	refs int
}

// memoryLocker only serializes callers inside one process. Slots are
// dropped once no holder or waiter references them.
type memoryLocker struct {
	mu    sync.Mutex
	slots map[string]*memorySlot
	wait  time.Duration
}

// NewMemoryLocker creates a process-local SessionLocker.
func NewMemoryLocker(wait time.Duration) SessionLocker {
	return &memoryLocker{
		slots: make(map[string]*memorySlot),
		wait:  wait,
	}
}

func (l *memoryLocker) acquire(key string) *memorySlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &memorySlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *memoryLocker) release(key string, slot *memorySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.slots[key] == slot {
		delete(l.slots, key)
	}
}

func (l *memoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *memoryLocker) Lock(parent context.Context, key string) (func(), error) {
	slot := l.acquire(key)

	ctx, cancel := context.WithTimeout(parent, l.wait)
	defer cancel()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.release(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, slot)
		return nil, waitError(parent, key)
	}
}
