package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidIdentity is returned when a session is requested for an identity without a provider ID.
var ErrInvalidIdentity = errors.New("identity requires a provider user id")

// DefaultSessionTTL matches the session cookie lifetime.
const DefaultSessionTTL = 24 * time.Hour

// Service provides session lifecycle logic on top of a Repository.
type Service struct {
	repo       Repository
	sessionTTL time.Duration
	secret     []byte
	now        func() time.Time
}

// Option configures the Service during construction.
type Option func(*Service)

// WithSessionSecret keys the stored token hashes with secret, so a leaked
// session table cannot be matched against guessed tokens without it.
func WithSessionSecret(secret string) Option {
	return func(s *Service) {
		if secret = strings.TrimSpace(secret); secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new auth Service.
func NewService(repo Repository, sessionTTL time.Duration, opts ...Option) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	svc := &Service{
		repo:       repo,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// CreateSession creates a new session bound to identity and returns the opaque session token.
func (s *Service) CreateSession(ctx context.Context, identity Identity, userAgent, ipAddress string) (string, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", ErrInvalidIdentity
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(tokenBytes)

	now := s.now()
	session := Session{
		ID:        uuid.New(),
		Identity:  identity,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		UserAgent: truncateString(userAgent, 512),
		IPAddress: truncateString(ipAddress, 45),
	}

	if err := s.repo.CreateSession(ctx, session, s.hashToken(token)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return token, nil
}

// ValidateSession returns the session for token, or nil when the token is
// empty, unknown or expired. Expired sessions are removed on sight.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.repo.FindSessionByTokenHash(ctx, s.hashToken(token))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if session.Expired(s.now()) {
		_ = s.repo.DeleteSession(ctx, session.ID)
		return nil, nil
	}

	return session, nil
}

// DeleteSession removes the session associated with the given token. Unknown tokens are a no-op.
func (s *Service) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.repo.FindSessionByTokenHash(ctx, s.hashToken(token))
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil
	}

	return s.repo.DeleteSession(ctx, session.ID)
}

// DeleteUserSessions removes every session of the provider user.
func (s *Service) DeleteUserSessions(ctx context.Context, providerUserID string) (int64, error) {
	if providerUserID == "" {
		return 0, nil
	}
	removed, err := s.repo.DeleteSessionsForUser(ctx, providerUserID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return removed, nil
}

// CleanupExpiredSessions removes all expired sessions from the store.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now())
}

// hashToken returns the hex digest stored in place of the raw token.
func (s *Service) hashToken(token string) string {
	if len(s.secret) == 0 {
		sum := sha256.Sum256([]byte(token))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// truncateString truncates a string to the given max length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
