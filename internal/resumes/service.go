package resumes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/imaging"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
)

const (
	defaultImageTimeout = 30 * time.Second

	// tombstoneTTL must outlast any public read that started before a write.
	tombstoneTTL = 30 * time.Second
)

// PublicCache caches public resume reads. Implementations must tolerate being unavailable.
type PublicCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	SetJSONNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// publicEntry is the cached form of a public read. Gone marks a resume written since the
// last fill; fills never overwrite it.
type publicEntry struct {
	Gone   bool    `json:"gone,omitempty"`
	Resume *Resume `json:"resume,omitempty"`
}

// Service enforces ownership on every private resume operation.
type Service struct {
	Repo         Repo
	Images       imaging.Transformer
	Cache        PublicCache
	CacheTTL     time.Duration
	ImageFolder  string
	ImageTimeout time.Duration
	Now          func() time.Time
}

func NewService(repo Repo, images imaging.Transformer) *Service {
	return &Service{
		Repo:         repo,
		Images:       images,
		ImageFolder:  imaging.DefaultFolder,
		ImageTimeout: defaultImageTimeout,
		Now:          time.Now,
	}
}

// ImageUpload is the raw image attached to an update.
type ImageUpload struct {
	Data        []byte
	ContentType string
}

// UpdateInput carries one resume update request.
type UpdateInput struct {
	OwnerID          string
	ResumeID         string
	Data             string
	Image            *ImageUpload
	RemoveBackground bool
}

// Create inserts an empty resume owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, title string) (Resume, error) {
	return s.CreateWithContent(ctx, ownerID, title, DefaultContent())
}

// CreateWithContent inserts a resume seeded with content. Column keys inside content are ignored.
func (s *Service) CreateWithContent(ctx context.Context, ownerID, title string, content Content) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return Resume{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	title, err := normalizeTitle(title, true)
	if err != nil {
		return Resume{}, err
	}
	merged := DefaultContent()
	for k, v := range sanitizeContent(content) {
		merged[k] = v
	}

	now := s.now()
	resume := Resume{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     title,
		Content:   merged,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Insert(ctx, resume); err != nil {
		return Resume{}, err
	}
	metrics.IncResumeCreated()
	return resume, nil
}

// List returns the owner's resumes, most recently updated first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Resume, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.ListByOwner(ctx, ownerID)
}

// GetPrivate returns the resume only to its owner.
func (s *Service) GetPrivate(ctx context.Context, ownerID, resumeID string) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	if !validID(resumeID) {
		return Resume{}, ErrNotFoundOrUnauthorized
	}
	resume, err := s.Repo.FindOwned(ctx, ownerID, resumeID)
	return resume, ownedError(err)
}

// GetPublic returns a resume marked public. The caller's identity is never consulted.
func (s *Service) GetPublic(ctx context.Context, resumeID string) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	if !validID(resumeID) {
		return Resume{}, ErrNotFound
	}

	key := publicCacheKey(resumeID)
	fill := s.Cache != nil
	if s.Cache != nil {
		var cached publicEntry
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil && hit && cached.Resume != nil && !cached.Gone:
			metrics.IncPublicCacheHit()
			return *cached.Resume, nil
		case err == nil && hit:
			fill = false
		}
		metrics.IncPublicCacheMiss()
	}

	resume, err := s.Repo.FindPublic(ctx, resumeID)
	if err != nil {
		return Resume{}, err
	}
	if fill {
		_, _ = s.Cache.SetJSONNX(ctx, key, publicEntry{Resume: &resume}, s.CacheTTL)
	}
	return resume, nil
}

// Delete removes the resume when ownerID owns it.
func (s *Service) Delete(ctx context.Context, ownerID, resumeID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !validID(resumeID) {
		return ErrNotFoundOrUnauthorized
	}
	if _, err := s.Repo.DeleteOwned(ctx, ownerID, resumeID); err != nil {
		return ownedError(err)
	}
	s.invalidate(ctx, resumeID)
	metrics.IncResumeDeleted()
	return nil
}

// Update applies the caller's patch, first transforming and merging an attached image.
// A transformation failure aborts before anything is written.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Resume, error) {
	if err := s.ready(); err != nil {
		return Resume{}, err
	}
	doc, err := ParseDocument(in.Data)
	if err != nil {
		return Resume{}, err
	}
	if !validID(in.ResumeID) {
		return Resume{}, ErrNotFoundOrUnauthorized
	}

	if in.Image != nil {
		if _, err := s.Repo.FindOwned(ctx, in.OwnerID, in.ResumeID); err != nil {
			return Resume{}, ownedError(err)
		}
		url, err := s.transformImage(ctx, in)
		if err != nil {
			return Resume{}, err
		}
		if err := InjectImage(doc, url); err != nil {
			return Resume{}, err
		}
	}

	patch, err := BuildPatch(doc)
	if err != nil {
		return Resume{}, err
	}
	resume, err := s.Repo.UpdateOwned(ctx, in.OwnerID, in.ResumeID, patch, s.now())
	if err != nil {
		return Resume{}, ownedError(err)
	}
	s.invalidate(ctx, in.ResumeID)
	metrics.IncResumeUpdated()
	return resume, nil
}

func (s *Service) transformImage(ctx context.Context, in UpdateInput) (string, error) {
	if s.Images == nil {
		return "", fmt.Errorf("%w: no image transformer configured", ErrUpstream)
	}
	if len(in.Image.Data) == 0 {
		return "", fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	timeout := s.ImageTimeout
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	folder := s.ImageFolder
	if folder == "" {
		folder = imaging.DefaultFolder
	}
	start := time.Now()
	metrics.IncImageTransform()
	url, err := s.Images.Transform(ctx, imaging.Request{
		Data:        in.Image.Data,
		FileName:    imaging.FileNameFor(in.ResumeID),
		Folder:      folder,
		Pipeline:    imaging.Pipeline(in.RemoveBackground),
		ContentType: in.Image.ContentType,
	})
	metrics.ObserveImageTransformDuration(time.Since(start))
	if err == nil && strings.TrimSpace(url) == "" {
		err = errors.New("empty image url")
	}
	if err != nil {
		metrics.IncImageTransformFailed()
		telemetry.Error("image.transform.failed", map[string]any{
			"resume_id": in.ResumeID,
			"user_id":   in.OwnerID,
			"error":     err,
		})
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return url, nil
}

func (s *Service) invalidate(ctx context.Context, resumeID string) {
	if s.Cache == nil {
		return
	}
	key := publicCacheKey(resumeID)
	if err := s.Cache.SetJSON(ctx, key, publicEntry{Gone: true}, tombstoneTTL); err != nil {
		if delErr := s.Cache.Delete(ctx, key); delErr != nil {
			telemetry.Warn("cache.invalidate.failed", map[string]any{"resume_id": resumeID, "error": err})
		}
	}
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("resumes service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// ownedError folds a store miss into the merged not-found-or-unauthorized error.
func ownedError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFoundOrUnauthorized
	}
	return err
}

// validID accepts only the canonical 36-character uuid form stored in the id column.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func publicCacheKey(resumeID string) string {
	return "resume:public:" + resumeID
}
