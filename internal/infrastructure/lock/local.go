package lock

import (
	"context"
	"sync"

	"schedule-monitor/internal/domain/repository"
)

// LocalDateLocker serializes schedule updates within one process
type LocalDateLocker struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	held chan struct{}
	refs int
}

// NewLocalDateLocker creates an in-process date locker
func NewLocalDateLocker() repository.DateLocker {
	return &LocalDateLocker{locks: make(map[string]*dateLock)}
}

// Lock blocks until date is free or ctx is done
func (l *LocalDateLocker) Lock(ctx context.Context, date string) (func(), error) {
	l.mu.Lock()
	dl, ok := l.locks[date]
	if !ok {
		dl = &dateLock{held: make(chan struct{}, 1)}
		l.locks[date] = dl
	}
	dl.refs++
	l.mu.Unlock()

	select {
	case dl.held <- struct{}{}:
	case <-ctx.Done():
		l.release(date, dl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-dl.held
			l.release(date, dl)
		})
	}, nil
}

func (l *LocalDateLocker) release(date string, dl *dateLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, date)
	}
}
