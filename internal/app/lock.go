package app

import (
	"sync"

	"github.com/pscheid92/karmapulse/internal/domain"
)

// scopeLocks hands out one mutex per scope. Entries are never removed; the
// number of networks a bot joins is small.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[domain.Scope]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[domain.Scope]*sync.Mutex)}
}

// lock acquires the mutex for scope and returns its release function.
func (l *scopeLocks) lock(scope domain.Scope) func() {
	l.mu.Lock()
	m, ok := l.locks[scope]
	if !ok {
		m = &sync.Mutex{}
		l.locks[scope] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
