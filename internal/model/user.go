// Package model defines domain entities for the application.
package model

import "time"

// User represents an account that owns expenses.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated caller of a request.
// It is injected into the request context by the auth middleware
// and is the only source of the acting user ID.
type Identity struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}
