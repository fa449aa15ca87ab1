package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedTest struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, TestKey(1), cachedTest{ID: 1, Title: "Academic 1"}, time.Minute))

	var got cachedTest
	require.NoError(t, c.Get(ctx, TestKey(1), &got))
	assert.Equal(t, cachedTest{ID: 1, Title: "Academic 1"}, got)

	err := c.Get(ctx, TestKey(2), &got)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := &memoryCache{entries: make(map[string]memoryEntry), now: func() time.Time { return now }}

	require.NoError(t, c.Set(ctx, "k", 1, time.Second))
	require.NoError(t, c.Set(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Second)

	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "forever", &v))
	assert.Equal(t, 2, v)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, TestKey(7), "test", 0))
	require.NoError(t, c.Set(ctx, TestSchemaKey(7, "reading"), "schema", 0))
	require.NoError(t, c.Set(ctx, TestKey(8), "other", 0))
	require.NoError(t, c.Set(ctx, TestSchemaKey(70, "reading"), "unrelated", 0))

	require.NoError(t, c.DeletePattern(ctx, TestDerivedPattern(7)))

	var s string
	assert.ErrorIs(t, c.Get(ctx, TestSchemaKey(7, "reading"), &s), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, TestKey(7), &s))
	assert.Equal(t, "test", s)
	require.NoError(t, c.Get(ctx, TestSchemaKey(70, "reading"), &s))
	require.NoError(t, c.Get(ctx, TestKey(8), &s))
	assert.Equal(t, "other", s)

	require.NoError(t, c.Delete(ctx, TestKey(8)))
	assert.ErrorIs(t, c.Get(ctx, TestKey(8), &s), ErrCacheMiss)
}

func TestMemoryLocker_SerializesHolders(t *testing.T) {
	locker := NewMemoryLocker(time.Second)
	key := SessionLockKey(42)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestMemoryLocker_Timeout(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), "a")
	assert.ErrorIs(t, err, ErrLockTimeout)

	other, err := locker.Lock(context.Background(), "b")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	again()
}

func TestMemoryLocker_ReleasesIdleSlots(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond).(*memoryLocker)

	for id := uint(1); id <= 100; id++ {
		unlock, err := locker.Lock(context.Background(), SessionLockKey(id))
		require.NoError(t, err)
		unlock()
	}
	assert.Equal(t, 0, locker.size())

	unlock, err := locker.Lock(context.Background(), "held")
	require.NoError(t, err)
	_, err = locker.Lock(context.Background(), "held")
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 1, locker.size(), "a timed-out waiter leaves only the holder's slot")

	unlock()
	assert.Equal(t, 0, locker.size())
}

func TestMemoryLocker_CallerCancellation(t *testing.T) {
	locker := NewMemoryLocker(time.Second)

	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = locker.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrLockTimeout))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	expired, stop := context.WithTimeout(context.Background(), time.Millisecond)
	defer stop()
	_, err = locker.Lock(expired, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrLockTimeout))
}
