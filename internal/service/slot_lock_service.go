package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrSlotLockBusy is returned when the distributed lock stays taken for every retry.
var ErrSlotLockBusy = errors.New("booking slot lock is busy")

// releaseLockScript deletes the lock only if it still holds our token, so a
// holder whose TTL expired cannot release someone else's lock.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const (
	RedisSlotLockKeyPrefix = "lock:slot:"

	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// SlotLocker serializes queue-number allocation for one doctor on one date.
type SlotLocker interface {
	WithSlotLock(ctx context.Context, doctorID uuid.UUID, date entity.Date, fn func(ctx context.Context) error) error
}

type SlotLockOptions struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// SlotLockService guards allocation with an in-process mutex per (doctor, date)
// and, when a Redis client is configured, a Redis lock shared by all replicas.
//
// Lock Ordering:
// 1. Local mutex
// 2. Redis lock
//
// The unique index on appointments stays the source of truth; the lock only
// keeps concurrent bookers from racing for the same number.
type SlotLockService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	opts        SlotLockOptions

	slotMu sync.Map // map[string]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup. The buffered channel is
// the mutex itself, so waiters can give up when their context ends.
type mutexWithTimestamp struct {
	sem      chan struct{}
	lastUsed atomic.Int64 // Unix timestamp
}

func newMutexWithTimestamp() *mutexWithTimestamp {
	return &mutexWithTimestamp{sem: make(chan struct{}, 1)}
}

func (m *mutexWithTimestamp) lock(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mutexWithTimestamp) tryLock() bool {
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *mutexWithTimestamp) unlock() {
	<-m.sem
}

// NewSlotLockService starts the background mutex cleanup. Call Stop() during shutdown.
// redisClient may be nil, in which case only the in-process lock is taken.
func NewSlotLockService(redisClient *redis.Client, log *logrus.Logger, opts SlotLockOptions) *SlotLockService {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 25 * time.Millisecond
	}

	svc := &SlotLockService{
		redisClient: redisClient,
		log:         log,
		opts:        opts,
		stopChan:    make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupMutexMapLoop()

	return svc
}

// Stop gracefully shuts down the service.
// Safe to call multiple times.
func (s *SlotLockService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("SlotLockService stopped")
	}
}

func (s *SlotLockService) WithSlotLock(ctx context.Context, doctorID uuid.UUID, date entity.Date, fn func(ctx context.Context) error) error {
	key := slotKey(doctorID, date)

	mt := s.getSlotMutex(key)
	if err := mt.lock(ctx); err != nil {
		return err
	}
	defer mt.unlock()

	if s.redisClient == nil {
		return fn(ctx)
	}

	token := uuid.NewString()
	redisKey := RedisSlotLockKeyPrefix + key
	if err := s.acquire(ctx, redisKey, token); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, s.redisClient, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			s.log.Warnf("Failed to release slot lock %s: %+v", redisKey, err)
		}
	}()

	lockCtx, cancel := context.WithTimeout(ctx, s.opts.TTL)
	defer cancel()
	return fn(lockCtx)
}

func (s *SlotLockService) acquire(ctx context.Context, key, token string) error {
	for attempt := 0; ; attempt++ {
		ok, err := s.redisClient.SetNX(ctx, key, token, s.opts.TTL).Result()
		if err != nil {
			s.log.Warnf("Failed to acquire slot lock %s: %+v", key, err)
			return fmt.Errorf("acquire slot lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if attempt >= s.opts.Retries {
			return ErrSlotLockBusy
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.RetryDelay):
		}
	}
}

func slotKey(doctorID uuid.UUID, date entity.Date) string {
	return doctorID.String() + ":" + date.String()
}

// getSlotMutex returns mutex for a specific (doctor, date) key
func (s *SlotLockService) getSlotMutex(key string) *mutexWithTimestamp {
	mt, _ := s.slotMu.LoadOrStore(key, newMutexWithTimestamp())
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

// cleanupMutexMapLoop runs in background to clean stale mutexes
func (s *SlotLockService) cleanupMutexMapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupStaleMutexes(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStaleMutexes removes mutexes last used before cutoff. lastUsed is
// checked while holding the mutex so a concurrent user keeps it alive.
func (s *SlotLockService) cleanupStaleMutexes(cutoff time.Time) int {
	var cleaned int

	s.slotMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.tryLock() {
			if mt.lastUsed.Load() < cutoff.Unix() {
				s.slotMu.Delete(key)
				cleaned++
			}
			mt.unlock()
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale slot mutexes", cleaned)
	}
	return cleaned
}
