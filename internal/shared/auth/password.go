package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordHasher hashes and verifies passwords with bcrypt and an optional pepper.
type PasswordHasher struct {
	cost   int
	pepper string
}

// NewPasswordHasher validates cost and builds a hasher. Cost 0 selects bcrypt.DefaultCost.
func NewPasswordHasher(cost int, pepper string) (*PasswordHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > 14 {
		return nil, fmt.Errorf("bcrypt cost out of range: %d", cost)
	}
	return &PasswordHasher{cost: cost, pepper: pepper}, nil
}

// Hash returns the bcrypt hash of pw.
func (h *PasswordHasher) Hash(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+h.pepper), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares pw with a stored hash.
func (h *PasswordHasher) Verify(pw, storedHash string) error {
	if storedHash == "" {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pw+h.pepper)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
