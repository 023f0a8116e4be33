package engine

import "sync"

// accountLocks hands out one mutex per account so submissions for the same
// account serialize while different accounts proceed in parallel. Locks are
// created on first use and never reclaimed; the map grows with the number
// of active accounts, which is bounded and small.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the account's mutex and returns the unlock function.
func (a *accountLocks) Lock(accountID string) func() {
	a.mu.Lock()
	l, ok := a.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[accountID] = l
	}
	a.mu.Unlock()

	l.Lock()
	return l.Unlock
}
