package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type repoStub struct {
	createSession         func(ctx context.Context, session Session, tokenHash string) error
	findSessionByHash     func(ctx context.Context, tokenHash string) (*Session, error)
	deleteSession         func(ctx context.Context, id uuid.UUID) error
	deleteSessionsForUser func(ctx context.Context, providerUserID string) (int64, error)
	deleteExpiredSessions func(ctx context.Context, now time.Time) (int64, error)
}

func (r *repoStub) CreateSession(ctx context.Context, session Session, tokenHash string) error {
	if r.createSession != nil {
		return r.createSession(ctx, session, tokenHash)
	}
	return nil
}

func (r *repoStub) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	if r.findSessionByHash != nil {
		return r.findSessionByHash(ctx, tokenHash)
	}
	return nil, nil
}

func (r *repoStub) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if r.deleteSession != nil {
		return r.deleteSession(ctx, id)
	}
	return nil
}

func (r *repoStub) DeleteSessionsForUser(ctx context.Context, providerUserID string) (int64, error) {
	if r.deleteSessionsForUser != nil {
		return r.deleteSessionsForUser(ctx, providerUserID)
	}
	return 0, nil
}

func (r *repoStub) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if r.deleteExpiredSessions != nil {
		return r.deleteExpiredSessions(ctx, now)
	}
	return 0, nil
}

var testIdentity = Identity{
	ID:       "583231",
	Username: "octocat",
	Photos:   []Photo{{Value: "https://avatars.githubusercontent.com/u/583231?v=4"}},
}

func TestServiceCreateSessionStoresHash(t *testing.T) {
	var storedHash string
	var storedSession Session
	repo := &repoStub{
		createSession: func(ctx context.Context, session Session, tokenHash string) error {
			storedHash = tokenHash
			storedSession = session
			return nil
		},
	}
	svc := NewService(repo, time.Hour)

	longUA := strings.Repeat("a", 600)
	longIP := strings.Repeat("b", 60)
	token, err := svc.CreateSession(context.Background(), testIdentity, longUA, longIP)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected token to be returned")
	}
	if storedHash == token || storedHash != svc.hashToken(token) {
		t.Fatalf("expected hashed token to be stored, got %q", storedHash)
	}
	if storedSession.Identity.ID != testIdentity.ID || storedSession.Identity.Username != "octocat" {
		t.Fatalf("unexpected identity %+v", storedSession.Identity)
	}
	if storedSession.ID == uuid.Nil {
		t.Fatal("expected session ID to be generated")
	}
	if len(storedSession.UserAgent) != 512 {
		t.Fatalf("expected user agent to be truncated to 512, got %d", len(storedSession.UserAgent))
	}
	if len(storedSession.IPAddress) != 45 {
		t.Fatalf("expected ip address to be truncated to 45, got %d", len(storedSession.IPAddress))
	}
}

func TestServiceCreateSessionRequiresIdentityID(t *testing.T) {
	svc := NewService(&repoStub{}, time.Hour)

	_, err := svc.CreateSession(context.Background(), Identity{Username: "nobody"}, "", "")
	if !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestServiceCreateSessionRepoError(t *testing.T) {
	repo := &repoStub{
		createSession: func(ctx context.Context, session Session, tokenHash string) error {
			return errors.New("boom")
		},
	}
	svc := NewService(repo, time.Hour)

	_, err := svc.CreateSession(context.Background(), testIdentity, "", "")
	if err == nil || !strings.Contains(err.Error(), "create session") {
		t.Fatalf("expected create session error, got %v", err)
	}
}

func TestServiceSessionSecretChangesHash(t *testing.T) {
	plain := NewService(&repoStub{}, time.Hour)
	keyed := NewService(&repoStub{}, time.Hour, WithSessionSecret("pepper"))
	other := NewService(&repoStub{}, time.Hour, WithSessionSecret("salt"))

	if plain.hashToken("token") == keyed.hashToken("token") {
		t.Fatal("expected keyed hash to differ from plain hash")
	}
	if keyed.hashToken("token") == other.hashToken("token") {
		t.Fatal("expected different secrets to produce different hashes")
	}
	if keyed.hashToken("token") != keyed.hashToken("token") {
		t.Fatal("expected hashing to be deterministic")
	}
}

func TestServiceDefaultsTTL(t *testing.T) {
	svc := NewService(&repoStub{}, 0)
	if svc.SessionTTL() != DefaultSessionTTL {
		t.Fatalf("expected default TTL, got %s", svc.SessionTTL())
	}
}

func TestServiceValidateSessionEmptyToken(t *testing.T) {
	svc := NewService(&repoStub{}, time.Hour)

	session, err := svc.ValidateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if session != nil {
		t.Fatalf("expected no session, got %+v", session)
	}
}

func TestServiceValidateSessionExpired(t *testing.T) {
	var deletedID uuid.UUID
	repo := &repoStub{
		findSessionByHash: func(ctx context.Context, tokenHash string) (*Session, error) {
			return &Session{ID: uuid.New(), Identity: testIdentity, ExpiresAt: time.Now().Add(-time.Minute)}, nil
		},
		deleteSession: func(ctx context.Context, id uuid.UUID) error {
			deletedID = id
			return nil
		},
	}
	svc := NewService(repo, time.Hour)

	session, err := svc.ValidateSession(context.Background(), "token")
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if session != nil {
		t.Fatalf("expected expired session to return nil, got %+v", session)
	}
	if deletedID == uuid.Nil {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestServiceValidateSessionValid(t *testing.T) {
	expected := &Session{ID: uuid.New(), Identity: testIdentity, ExpiresAt: time.Now().Add(time.Minute)}
	repo := &repoStub{
		findSessionByHash: func(ctx context.Context, tokenHash string) (*Session, error) {
			return expected, nil
		},
	}
	svc := NewService(repo, time.Hour)

	session, err := svc.ValidateSession(context.Background(), "token")
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if session != expected {
		t.Fatal("expected session to be returned")
	}
}

func TestServiceValidateSessionRepoError(t *testing.T) {
	repo := &repoStub{
		findSessionByHash: func(ctx context.Context, tokenHash string) (*Session, error) {
			return nil, errors.New("boom")
		},
	}
	svc := NewService(repo, time.Hour)

	_, err := svc.ValidateSession(context.Background(), "token")
	if err == nil || !strings.Contains(err.Error(), "find session") {
		t.Fatalf("expected find session error, got %v", err)
	}
}

func TestServiceDeleteSession(t *testing.T) {
	var deletedID uuid.UUID
	sessionID := uuid.New()
	repo := &repoStub{
		findSessionByHash: func(ctx context.Context, tokenHash string) (*Session, error) {
			return &Session{ID: sessionID}, nil
		},
		deleteSession: func(ctx context.Context, id uuid.UUID) error {
			deletedID = id
			return nil
		},
	}
	svc := NewService(repo, time.Hour)

	if err := svc.DeleteSession(context.Background(), "token"); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if deletedID != sessionID {
		t.Fatalf("expected session %s to be deleted, got %s", sessionID, deletedID)
	}
}

func TestServiceDeleteSessionMissing(t *testing.T) {
	svc := NewService(&repoStub{}, time.Hour)

	if err := svc.DeleteSession(context.Background(), "token"); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if err := svc.DeleteSession(context.Background(), ""); err != nil {
		t.Fatalf("DeleteSession with empty token returned error: %v", err)
	}
}

func TestServiceDeleteUserSessions(t *testing.T) {
	var gotUser string
	repo := &repoStub{
		deleteSessionsForUser: func(ctx context.Context, providerUserID string) (int64, error) {
			gotUser = providerUserID
			return 2, nil
		},
	}
	svc := NewService(repo, time.Hour)

	removed, err := svc.DeleteUserSessions(context.Background(), "583231")
	if err != nil {
		t.Fatalf("DeleteUserSessions returned error: %v", err)
	}
	if removed != 2 || gotUser != "583231" {
		t.Fatalf("unexpected result removed=%d user=%q", removed, gotUser)
	}
}

func TestServiceCleanupExpiredSessionsUsesClock(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var gotNow time.Time
	repo := &repoStub{
		deleteExpiredSessions: func(ctx context.Context, now time.Time) (int64, error) {
			gotNow = now
			return 3, nil
		},
	}
	svc := NewService(repo, time.Hour, WithClock(func() time.Time { return fixed }))

	count, err := svc.CleanupExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpiredSessions returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 expired sessions removed, got %d", count)
	}
	if !gotNow.Equal(fixed) {
		t.Fatalf("expected clock time %s, got %s", fixed, gotNow)
	}
}

func TestServiceRoundTripWithInMemoryRepository(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(NewInMemoryRepository(), time.Hour, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	token, err := svc.CreateSession(ctx, testIdentity, "ua", "127.0.0.1")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	session, err := svc.ValidateSession(ctx, token)
	if err != nil || session == nil {
		t.Fatalf("expected valid session, got %v, %v", session, err)
	}
	if session.Identity.Username != "octocat" || len(session.Identity.Photos) != 1 {
		t.Fatalf("unexpected identity %+v", session.Identity)
	}

	now = now.Add(2 * time.Hour)
	session, err = svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if session != nil {
		t.Fatal("expected session to expire")
	}
}
