package users

import "errors"

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
