package model

import "time"

type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	GoogleConnected bool      `json:"googleConnected"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// RefreshToken is the Google OAuth refresh token stored by the auth
	// layer. Never serialized.
	RefreshToken string `json:"-"`
}

type Session struct {
	ID        int64
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
