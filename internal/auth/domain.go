package auth

import "time"

// Credential is the authentication view of a user account.
type Credential struct {
	UserID       int64
	Email        string
	PasswordHash string
	Type         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the outcome of a successful login: the user and the role
// names resolved for them at that moment.
type Identity struct {
	UserID int64
	Roles  []string
}
