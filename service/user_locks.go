package service

import (
	"slices"
	"sync"
)

// UserLocks hands out one mutex per user id. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewUserLocks creates an empty lock table
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[int64]*userLock)}
}

// Lock acquires the locks for all ids in ascending order and returns the matching unlock.
// Duplicate ids are locked once.
func (l *UserLocks) Lock(ids ...int64) func() {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*userLock, 0, len(sorted))
	for _, id := range sorted {
		lock := l.acquire(id)
		lock.mu.Lock()
		held = append(held, lock)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(sorted[i])
			}
		})
	}
}

// Size returns the number of ids currently tracked
func (l *UserLocks) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *UserLocks) acquire(id int64) *userLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		lock = &userLock{}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *UserLocks) release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}
