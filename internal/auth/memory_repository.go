package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSession is returned when a token hash is already stored.
var ErrDuplicateSession = errors.New("session token hash already exists")

// InMemoryRepository stores sessions in an in-process map, ideal for local development or tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byHash map[string]Session
	hashes map[uuid.UUID]string
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byHash: make(map[string]Session),
		hashes: make(map[uuid.UUID]string),
	}
}

// CreateSession stores a new session under its token hash.
func (r *InMemoryRepository) CreateSession(_ context.Context, session Session, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[tokenHash]; exists {
		return ErrDuplicateSession
	}
	session.Identity = cloneIdentity(session.Identity)
	r.byHash[tokenHash] = session
	r.hashes[session.ID] = tokenHash
	return nil
}

// FindSessionByTokenHash returns the session stored under tokenHash, or nil when absent.
func (r *InMemoryRepository) FindSessionByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	session.Identity = cloneIdentity(session.Identity)
	return &session, nil
}

// DeleteSession removes a session by ID. Missing sessions are ignored.
func (r *InMemoryRepository) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hash, ok := r.hashes[id]; ok {
		delete(r.byHash, hash)
		delete(r.hashes, id)
	}
	return nil
}

// DeleteSessionsForUser removes every session bound to the provider user.
func (r *InMemoryRepository) DeleteSessionsForUser(_ context.Context, providerUserID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, session := range r.byHash {
		if session.Identity.ID == providerUserID {
			delete(r.byHash, hash)
			delete(r.hashes, session.ID)
			removed++
		}
	}
	return removed, nil
}

// DeleteExpiredSessions removes all sessions expired at now.
func (r *InMemoryRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, session := range r.byHash {
		if session.Expired(now) {
			delete(r.byHash, hash)
			delete(r.hashes, session.ID)
			removed++
		}
	}
	return removed, nil
}

func cloneIdentity(identity Identity) Identity {
	identity.Photos = append(make([]Photo, 0, len(identity.Photos)), identity.Photos...)
	return identity
}
