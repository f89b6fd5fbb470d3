package membership

import "sync"

// userLocks is a keyed lock table guarding join/leave per user within this
// process. It prevents a user from double-triggering an operation while a
// prior request is still in flight; it is not a distributed lock.
type userLocks struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func newUserLocks() *userLocks {
	return &userLocks{held: make(map[int64]struct{})}
}

// tryAcquire takes the lock for a user, returning false if it is already held
func (l *userLocks) tryAcquire(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[userID]; ok {
		return false
	}
	l.held[userID] = struct{}{}
	return true
}

func (l *userLocks) release(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, userID)
}
