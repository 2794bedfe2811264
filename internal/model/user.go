// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The JSON shape is exactly what GET /auth/me returns: the password hash,
// the optional GitHub link and the timestamp never leave the server.
//
// WHY GitHubID *int64?
// Most accounts sign up with email + password and have no GitHub identity.
// A nil pointer maps to SQL NULL, and the UNIQUE index on github_id ignores
// NULLs, so many password-only users can coexist.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	GitHubID       *int64    `json:"-"`
	CreatedAt      time.Time `json:"-"`
}
