package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"career-quest/logger"
)

// UserLocker serializes gamification updates for one user. The returned
// release func must be called exactly once.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (release func(), err error)
}

// MemoryLocker is a keyed mutex for a single instance.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*userLock)}
}

func (m *MemoryLocker) Lock(ctx context.Context, userID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				m.drop(userID, l)
			})
		}, nil
	case <-ctx.Done():
		m.drop(userID, l)
		return nil, ctx.Err()
	}
}

func (m *MemoryLocker) drop(userID string, l *userLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, userID)
	}
}

// held reports how many users currently have a lock entry.
func (m *MemoryLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker holds the lock as a SET NX PX key so several instances share it.
// While held, the key's TTL is extended every ttl/3, so ttl only bounds how
// long a crashed holder blocks others.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

func lockKey(userID string) string { return "career-quest:lock:user:" + userID }

func (r *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := lockKey(userID)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock for %s: %w", userID, err)
		}
		if ok {
			stop := make(chan struct{})
			go keepAlive(userID, r.ttl/3, stop, func(ctx context.Context) (int64, error) {
				return extendScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int64()
			})

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					// a fresh context so a cancelled request still releases
					relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					n, err := releaseScript.Run(relCtx, r.client, []string{key}, token).Int64()
					logRelease(userID, n, err)
				})
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// keepAlive extends the lease every interval until stop closes or the lease
// is found to belong to someone else.
func keepAlive(userID string, interval time.Duration, stop <-chan struct{}, extend func(context.Context) (int64, error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extend(ctx)
		cancel()
		switch {
		case err != nil:
			logger.ForUser(userID).WithError(err).Warn("⚠️ failed to extend user lock")
		case n == 0:
			logger.ForUser(userID).Error("❌ user lock lost while held")
			return
		}
	}
}

func logRelease(userID string, deleted int64, err error) {
	switch {
	case err != nil:
		logger.ForUser(userID).WithError(err).Warn("⚠️ failed to release user lock")
	case deleted == 0:
		logger.ForUser(userID).Warn("⚠️ user lock had already expired on release")
	}
}
