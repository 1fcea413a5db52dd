package users

import "time"

// User is a registered account. PasswordHash is empty for accounts created through Google sign-in.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleSub    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OAuthIdentity is the subset of a Google profile used to sign a user in.
type OAuthIdentity struct {
	Subject string
	Email   string
	Name    string
}
