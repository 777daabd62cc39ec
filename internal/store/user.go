package store

import (
	"database/sql"
	"fmt"

	"github.com/sentinelapp/sentinel/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, email, name, google_refresh_token, google_connected, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var connected int
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.RefreshToken, &connected, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.GoogleConnected = connected != 0
	return &u, nil
}

func (s *UserStore) Create(email, name string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name) VALUES (?, ?)`,
		email, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// SetGoogleToken stores the refresh token handed back by the OAuth callback.
func (s *UserStore) SetGoogleToken(id int64, refreshToken string) error {
	_, err := s.db.Exec(
		`UPDATE users SET google_refresh_token = ?, google_connected = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		refreshToken, id,
	)
	if err != nil {
		return fmt.Errorf("set google token: %w", err)
	}
	return nil
}

// ClearGoogleToken removes the stored Google credential on disconnect.
func (s *UserStore) ClearGoogleToken(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET google_refresh_token = '', google_connected = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear google token: %w", err)
	}
	return nil
}
