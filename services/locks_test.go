package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-quest/logger"
)

func TestMemoryLocker_SerializesOneUser(t *testing.T) {
	locker := NewMemoryLocker()

	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "u1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Zero(t, locker.held())
}

func TestMemoryLocker_UsersDoNotBlockEachOther(t *testing.T) {
	locker := NewMemoryLocker()
	releaseA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestMemoryLocker_ContextCancel(t *testing.T) {
	locker := NewMemoryLocker()
	release, err := locker.Lock(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	// double release is a no-op
	release()
	assert.Zero(t, locker.held())
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "career-quest:lock:user:42", lockKey("42"))
}

func TestKeepAlive_ExtendsUntilStopped(t *testing.T) {
	var calls int32
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		keepAlive("u1", 5*time.Millisecond, stop, func(context.Context) (int64, error) {
			atomic.AddInt32(&calls, 1)
			return 1, nil
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive did not stop")
	}
}

func TestKeepAlive_StopsWhenLeaseLost(t *testing.T) {
	hook := test.NewLocal(logger.Log)
	var calls int32
	done := make(chan struct{})
	go func() {
		keepAlive("u1", 5*time.Millisecond, make(chan struct{}), func(context.Context) (int64, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return 0, errors.New("timeout")
			}
			return 0, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept running after losing the lease")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.AllEntries()[0].Level)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "u1", hook.LastEntry().Data["user_id"])
}

func TestLogRelease(t *testing.T) {
	hook := test.NewLocal(logger.Log)

	logRelease("u1", 1, nil)
	assert.Empty(t, hook.AllEntries())

	logRelease("u1", 0, errors.New("connection refused"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "⚠️ failed to release user lock", hook.LastEntry().Message)
	assert.EqualError(t, hook.LastEntry().Data[logrus.ErrorKey].(error), "connection refused")

	logRelease("u1", 0, nil)
	assert.Equal(t, "⚠️ user lock had already expired on release", hook.LastEntry().Message)
	assert.Len(t, hook.AllEntries(), 2)
}
