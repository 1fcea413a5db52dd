package resumes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-process Repo used in dev and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	resumes map[string]Resume
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{resumes: make(map[string]Resume)}
}

func (r *MemoryRepo) Insert(ctx context.Context, resume Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resumes[resume.ID]; exists {
		return fmt.Errorf("%w: duplicate id", ErrInvalidInput)
	}
	r.resumes[resume.ID] = resume.clone()
	return nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resume, 0)
	for _, resume := range r.resumes {
		if resume.UserID == ownerID {
			out = append(out, resume.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) FindOwned(ctx context.Context, ownerID, resumeID string) (Resume, error) {
	return r.findOne(ctx, resumeID, func(res Resume) bool { return res.UserID == ownerID })
}

func (r *MemoryRepo) FindPublic(ctx context.Context, resumeID string) (Resume, error) {
	return r.findOne(ctx, resumeID, func(res Resume) bool { return res.Public })
}

func (r *MemoryRepo) DeleteOwned(ctx context.Context, ownerID, resumeID string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[resumeID]
	if !ok || resume.UserID != ownerID {
		return Resume{}, ErrNotFound
	}
	delete(r.resumes, resumeID)
	return resume, nil
}

func (r *MemoryRepo) UpdateOwned(ctx context.Context, ownerID, resumeID string, patch Patch, at time.Time) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	patch.Content = patch.Content.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[resumeID]
	if !ok || resume.UserID != ownerID {
		return Resume{}, ErrNotFound
	}
	resume = resume.clone()
	patch.apply(&resume)
	resume.Version++
	resume.UpdatedAt = at
	r.resumes[resumeID] = resume
	return resume.clone(), nil
}

func (r *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepo) findOne(ctx context.Context, resumeID string, match func(Resume) bool) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	resume, ok := r.resumes[resumeID]
	if !ok || !match(resume) {
		return Resume{}, ErrNotFound
	}
	return resume.clone(), nil
}

var _ Repo = (*MemoryRepo)(nil)
