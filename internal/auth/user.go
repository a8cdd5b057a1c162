package auth

import (
	"time"

	"github.com/google/uuid"
)

// Photo is one avatar reference for an identity.
type Photo struct {
	Value string `json:"value"`
}

// Identity is the minimal user snapshot carried by a session. It never holds the access token.
type Identity struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Photos   []Photo `json:"photos"`
}

// Session represents an authenticated browser session.
type Session struct {
	ID        uuid.UUID
	Identity  Identity
	ExpiresAt time.Time
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// Expired reports whether the session is no longer valid at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Grant is the result of a successful authorization-code exchange.
type Grant struct {
	AccessToken string
	Identity    Identity
}
