package resumes

import "errors"

var (
	// ErrNotFound indicates no record matched, and is the public-read miss.
	ErrNotFound = errors.New("public resume not found")

	// ErrNotFoundOrUnauthorized covers both a missing resume and one owned by someone else.
	ErrNotFoundOrUnauthorized = errors.New("resume not found or unauthorized")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates the image transformation service failed.
	ErrUpstream = errors.New("image service unavailable")
)
