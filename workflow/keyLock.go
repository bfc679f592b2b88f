package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const (
	stockLockTTL   = 30 * time.Second
	stockLockRetry = 25 * time.Millisecond
	stockLockTries = 400
)

// KeyLocker serializes read-modify-write of one ledger row.
// The in-process mutex is always taken; the Redis lock (stock:<key>) is added
// when a redislock client is configured so replicas serialize as well.
// Redis is best effort: if the lock cannot be obtained we proceed on the local lock.
type KeyLocker struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	redis  *redislock.Client
	logger *logrus.Logger
}

func NewKeyLocker(redis *redislock.Client, logger *logrus.Logger) *KeyLocker {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &KeyLocker{
		locks:  map[string]*sync.Mutex{},
		redis:  redis,
		logger: logger,
	}
}

func (l *KeyLocker) local(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.locks[key]
	if m == nil {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Lock blocks until key is held and returns its release func.
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := l.local(key)
	m.Lock()

	var lock *redislock.Lock
	if l.redis != nil {
		var err error
		lock, err = l.redis.Obtain(ctx, fmt.Sprintf("stock:%s", key), stockLockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(stockLockRetry), stockLockTries),
		})
		if errors.Is(err, redislock.ErrNotObtained) {
			l.logger.WithFields(logrus.Fields{
				"field": "KeyLocker",
				"key":   key,
			}).Warn("could not obtain redis lock; proceeding with local lock only")
			lock = nil
		} else if err != nil {
			l.logger.WithFields(logrus.Fields{
				"field": "KeyLocker",
				"key":   key,
			}).Warn("error obtaining redis lock; proceeding with local lock only: " + err.Error())
			lock = nil
		}
	}

	return func() {
		if lock != nil {
			// Release with a fresh context; the caller's may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.WithFields(logrus.Fields{
					"field": "KeyLocker",
					"key":   key,
				}).Warn("failed to release redis lock: " + err.Error())
			}
			cancel()
		}
		m.Unlock()
	}, nil
}
