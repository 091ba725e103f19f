package core

import "sync"

// pairLocks serializes lifecycle mutations per user/provider pair. Entries
// are reference counted and removed once the last holder releases, so the
// map does not grow with the number of pairs ever seen.
type pairLocks struct {
	mu      sync.Mutex
	entries map[credentialKey]*pairLockEntry
}

type pairLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{entries: map[credentialKey]*pairLockEntry{}}
}

// lock blocks until the pair lock is held and returns the release func.
func (l *pairLocks) lock(key credentialKey) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &pairLockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}

// refreshFlightKey builds the singleflight key for a pair.
func refreshFlightKey(key credentialKey) string {
	return key.userID + "\x00" + key.providerID
}
