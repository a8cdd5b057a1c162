package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSession inserts a new session into the database.
func (r *PostgresRepository) CreateSession(ctx context.Context, session Session, tokenHash string) error {
	const query = `
		INSERT INTO user_sessions (id, session_token_hash, provider_user_id, username, photos, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	photos, err := json.Marshal(photosOrEmpty(session.Identity.Photos))
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		tokenHash,
		session.Identity.ID,
		session.Identity.Username,
		photos,
		session.ExpiresAt,
		session.CreatedAt,
		session.UserAgent,
		session.IPAddress,
	)
	return err
}

// FindSessionByTokenHash looks up a session by token hash.
func (r *PostgresRepository) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	const query = `
		SELECT id, provider_user_id, username, photos, expires_at, created_at, user_agent, ip_address
		FROM user_sessions
		WHERE session_token_hash = $1
	`

	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toSession()
}

// DeleteSession removes a session from the database.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteSessionsForUser removes every session bound to the provider user.
func (r *PostgresRepository) DeleteSessionsForUser(ctx context.Context, providerUserID string) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE provider_user_id = $1`
	result, err := r.db.ExecContext(ctx, query, providerUserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpiredSessions removes all sessions expired at now.
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// sessionRow is a database row representation of Session.
type sessionRow struct {
	ID             uuid.UUID `db:"id"`
	ProviderUserID string    `db:"provider_user_id"`
	Username       string    `db:"username"`
	Photos         []byte    `db:"photos"`
	ExpiresAt      time.Time `db:"expires_at"`
	CreatedAt      time.Time `db:"created_at"`
	UserAgent      string    `db:"user_agent"`
	IPAddress      string    `db:"ip_address"`
}

func (r *sessionRow) toSession() (*Session, error) {
	var photos []Photo
	if len(r.Photos) > 0 {
		if err := json.Unmarshal(r.Photos, &photos); err != nil {
			return nil, fmt.Errorf("decode photos: %w", err)
		}
	}

	return &Session{
		ID: r.ID,
		Identity: Identity{
			ID:       r.ProviderUserID,
			Username: r.Username,
			Photos:   photos,
		},
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
	}, nil
}

func photosOrEmpty(photos []Photo) []Photo {
	if photos == nil {
		return []Photo{}
	}
	return photos
}
