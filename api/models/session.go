package models

import (
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is the durable record behind a private token. Deleting it is the
// authoritative revocation; the cached copy may outlive it by the cache TTL.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PublicToken is the durable, never-expiring attribution token for an owner.
// Issuance is idempotent: one row per owner.
type PublicToken struct {
	UserID    string
	Token     string
	CreatedAt time.Time
}
