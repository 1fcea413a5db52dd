package users

import "context"

// Repo persists accounts. Emails are stored lower-cased and are unique.
type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByGoogleSub(ctx context.Context, sub string) (User, error)
	LinkGoogle(ctx context.Context, userID, sub string) error
}
