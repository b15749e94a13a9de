package model

import "time"

// User mirrors the `users` table. Staff users may write catalog data.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	IsStaff      bool
	IsActive     bool
	CreatedAt    time.Time
}

// RefreshToken models an entry in `refresh_tokens`. Only the SHA-256 hash
// of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
