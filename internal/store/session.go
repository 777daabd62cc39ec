package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sentinelapp/sentinel/internal/auth"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create mints a session for the user and returns the opaque bearer token.
// Only an Argon2id hash of the token secret is persisted.
func (s *SessionStore) Create(userID int64, ttl time.Duration) (string, error) {
	secret, salt, err := auth.NewSecret()
	if err != nil {
		return "", err
	}

	result, err := s.db.Exec(
		`INSERT INTO sessions (user_id, secret_hash, salt, expires_at) VALUES (?, ?, ?, ?)`,
		userID, auth.HashSecret(secret, salt), hex.EncodeToString(salt), time.Now().UTC().Add(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return auth.FormatToken(id, secret), nil
}

// Resolve validates a bearer token and returns the owning user id.
// Returns 0 with no error when the token is invalid or expired.
func (s *SessionStore) Resolve(token string) (userID, sessionID int64, err error) {
	sid, secret, err := auth.ParseToken(token)
	if err != nil {
		return 0, 0, nil
	}

	var uid int64
	var hash, saltHex string
	var expires time.Time
	row := s.db.QueryRow(`SELECT user_id, secret_hash, salt, expires_at FROM sessions WHERE id = ?`, sid)
	if err := row.Scan(&uid, &hash, &saltHex, &expires); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("query session: %w", err)
	}

	if time.Now().UTC().After(expires) {
		return 0, 0, nil
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return 0, 0, fmt.Errorf("decode session salt: %w", err)
	}
	if !auth.VerifySecret(secret, salt, hash) {
		return 0, 0, nil
	}
	return uid, sid, nil
}

// Delete removes a session (logout).
func (s *SessionStore) Delete(sessionID int64) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired sessions; run periodically.
func (s *SessionStore) DeleteExpired() error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
