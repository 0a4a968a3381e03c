package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Leadflow/internal/followuptest"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

const testLock = "test.lock"

func newTestLocker() (*Locker, *followuptest.Store) {
	store := followuptest.NewStore()
	return New(store.Locks(), telemetry.DiscardLogger()), store
}

func TestWithLock_RunsBodyAndReleases(t *testing.T) {
	locker, store := newTestLocker()

	ran := false
	ok, err := locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
		ran = true
		lockedAt, exists := store.LockedAt(testLock)
		require.True(t, exists)
		assert.NotNil(t, lockedAt, "lock must be held while body runs")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ran)

	lockedAt, exists := store.LockedAt(testLock)
	assert.True(t, exists, "lock row is kept after release")
	assert.Nil(t, lockedAt)
}

func TestWithLock_MutualExclusion(t *testing.T) {
	locker, _ := newTestLocker()

	entered := make(chan struct{})
	unblock := make(chan struct{})

	var firstOK bool
	var firstErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstOK, firstErr = locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
			close(entered)
			<-unblock
			return nil
		})
	}()

	<-entered

	secondRan := false
	ok, err := locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
		secondRan = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, secondRan)

	close(unblock)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.True(t, firstOK)

	// После освобождения блокировка снова доступна
	ok, err = locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithLock_ConcurrentCallersRunBodyOnce(t *testing.T) {
	locker, _ := newTestLocker()

	var running, maxRunning, runs atomic.Int32
	var acquired atomic.Int32

	start := make(chan struct{})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				runs.Add(1)
				time.Sleep(50 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
			if ok {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning.Load(), "bodies must never overlap")
	assert.Equal(t, runs.Load(), acquired.Load())
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestWithLock_RecoversStaleLock(t *testing.T) {
	locker, store := newTestLocker()

	crashedAt := time.Now().Add(-6 * time.Minute)
	store.SetLockedAt(testLock, &crashedAt)

	ran := false
	ok, err := locker.WithLock(context.Background(), testLock, 5*time.Minute, func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ran)
}

func TestWithLock_FreshLockIsNotStolen(t *testing.T) {
	locker, store := newTestLocker()

	heldAt := time.Now().Add(-4 * time.Minute)
	store.SetLockedAt(testLock, &heldAt)

	ok, err := locker.WithLock(context.Background(), testLock, 5*time.Minute, func(ctx context.Context) error {
		t.Fatal("body must not run while lock is held")
		return nil
	})

	require.NoError(t, err)
	assert.False(t, ok)

	lockedAt, _ := store.LockedAt(testLock)
	require.NotNil(t, lockedAt)
	assert.True(t, lockedAt.Equal(heldAt), "owner's lock must stay untouched")
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	locker, store := newTestLocker()
	bodyErr := errors.New("boom")

	ok, err := locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
		return bodyErr
	})

	assert.True(t, ok)
	assert.ErrorIs(t, err, bodyErr)

	lockedAt, _ := store.LockedAt(testLock)
	assert.Nil(t, lockedAt)
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	locker, store := newTestLocker()

	assert.Panics(t, func() {
		_, _ = locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
			panic("body panic")
		})
	})

	lockedAt, _ := store.LockedAt(testLock)
	assert.Nil(t, lockedAt)
}

func TestWithLock_ReleasesAfterCancel(t *testing.T) {
	locker, store := newTestLocker()
	ctx, cancel := context.WithCancel(context.Background())

	ok, err := locker.WithLock(ctx, testLock, time.Minute, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.True(t, ok)
	assert.ErrorIs(t, err, context.Canceled)

	lockedAt, _ := store.LockedAt(testLock)
	assert.Nil(t, lockedAt, "release must not depend on caller context")
}

func TestWithLock_DoesNotReleaseTakenOverLock(t *testing.T) {
	locker, store := newTestLocker()
	newOwner := time.Now().Add(time.Second)

	ok, err := locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
		// Другой экземпляр перехватил блокировку как протухшую
		store.SetLockedAt(testLock, &newOwner)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)

	lockedAt, _ := store.LockedAt(testLock)
	require.NotNil(t, lockedAt)
	assert.True(t, lockedAt.Equal(newOwner))
}

func TestWithLock_StoreError(t *testing.T) {
	locker, store := newTestLocker()
	store.Err = errors.New("db down")

	ok, err := locker.WithLock(context.Background(), testLock, time.Minute, func(ctx context.Context) error {
		t.Fatal("body must not run")
		return nil
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, store.Err)
}

func TestExclusive(t *testing.T) {
	locker, store := newTestLocker()

	n, ok, err := Exclusive(context.Background(), locker, testLock, time.Minute, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	held := time.Now()
	store.SetLockedAt(testLock, &held)

	n, ok, err = Exclusive(context.Background(), locker, testLock, time.Minute, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)
}
