package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// UnlockFunc releases a lock taken by KeyLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// KeyLocker serializes work on a single key across goroutines, or across
// processes for distributed implementations. Different keys never block each other.
type KeyLocker interface {
	// Lock blocks until the key is held or ctx is done, in which case the error
	// wraps ErrLockNotAcquired.
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// CardLockKey returns the lock key for the card of a (user, content) pair.
func CardLockKey(contentType string, userID, contentID uuid.UUID) string {
	return fmt.Sprintf("card:%s:%s:%s", contentType, userID, contentID)
}

// LocalKeyLocker is an in-process KeyLocker.
// The zero value is not usable; create one with NewLocalKeyLocker.
type LocalKeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocalKeyLocker creates a LocalKeyLocker.
func NewLocalKeyLocker() *LocalKeyLocker {
	return &LocalKeyLocker{locks: make(map[string]*keyLock)}
}

var _ KeyLocker = (*LocalKeyLocker)(nil)

// Lock implements KeyLocker.Lock
func (l *LocalKeyLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
		return nil
	}, nil
}

// release drops one reference and forgets the key when nobody holds or waits for it.
func (l *LocalKeyLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of tracked keys.
func (l *LocalKeyLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
