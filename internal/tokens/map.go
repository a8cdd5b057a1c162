// Package tokens holds the process-wide association from provider user id to access token.
//
// Entries live only in memory. A restart drops every token and users must log
// in again.
package tokens

import "sync"

// Map is a concurrency-safe user id to access token store.
// Concurrent Put and Delete for the same user resolve as last write wins.
type Map struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{entries: make(map[string]string)}
}

// Put stores token for userID, overwriting any previous entry.
func (m *Map) Put(userID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = token
}

// Get returns the token for userID and whether one is present.
func (m *Map) Get(userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.entries[userID]
	return token, ok
}

// Delete removes the entry for userID. Absent entries are a no-op.
func (m *Map) Delete(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
}

// Len reports the number of stored tokens.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
