package resumes

import (
	"context"
	"time"
)

// Repo persists resumes. Every lookup that misses returns ErrNotFound.
// Owner-scoped methods match on id and owner in a single statement.
type Repo interface {
	Insert(ctx context.Context, resume Resume) error
	ListByOwner(ctx context.Context, ownerID string) ([]Resume, error)
	FindOwned(ctx context.Context, ownerID, resumeID string) (Resume, error)
	FindPublic(ctx context.Context, resumeID string) (Resume, error)
	DeleteOwned(ctx context.Context, ownerID, resumeID string) (Resume, error)
	UpdateOwned(ctx context.Context, ownerID, resumeID string, patch Patch, at time.Time) (Resume, error)
	Ping(ctx context.Context) error
}
