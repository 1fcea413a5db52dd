package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/imaging"
)

const (
	ownerA = "11111111-1111-1111-1111-111111111111"
	ownerB = "22222222-2222-2222-2222-222222222222"
)

type recordingTransformer struct {
	mu       sync.Mutex
	requests []imaging.Request
	url      string
	err      error
	delay    time.Duration
}

func (r *recordingTransformer) Transform(ctx context.Context, req imaging.Request) (string, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.err != nil {
		return "", r.err
	}
	return r.url, nil
}

func (r *recordingTransformer) calls() []imaging.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]imaging.Request(nil), r.requests...)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (m *mapCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (m *mapCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = b
	return nil
}

func (m *mapCache) SetJSONNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = b
	return true, nil
}

func (m *mapCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *mapCache) entry(t *testing.T, key string) (publicEntry, bool) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[key]
	if !ok {
		return publicEntry{}, false
	}
	var e publicEntry
	require.NoError(t, json.Unmarshal(b, &e))
	return e, true
}

// pausingRepo holds the first FindPublic after it has read the store until release is closed.
type pausingRepo struct {
	Repo
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingRepo) FindPublic(ctx context.Context, id string) (Resume, error) {
	r, err := p.Repo.FindPublic(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return r, err
}

func newTestService(images imaging.Transformer) *Service {
	return NewService(NewMemoryRepo(), images)
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, ownerA, "   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, r.Title)
	assert.False(t, r.Public)
	assert.Equal(t, 1, r.Version)
	assert.Equal(t, "classic", r.Content["template"])
	assert.Equal(t, map[string]any{}, r.Content["personal_info"])

	_, err = svc.Create(ctx, ownerA, strings.Repeat("x", 201))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "", "t")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateWithContentIgnoresColumnKeys(t *testing.T) {
	svc := newTestService(nil)
	r, err := svc.CreateWithContent(context.Background(), ownerA, "Imported", Content{
		"userId":               ownerB,
		"public":               true,
		"professional_summary": "Builds things",
	})
	require.NoError(t, err)
	assert.Equal(t, ownerA, r.UserID)
	assert.False(t, r.Public)
	assert.Equal(t, "Builds things", r.Content["professional_summary"])
	assert.NotContains(t, r.Content, "userId")
	assert.Equal(t, "classic", r.Content["template"])
}

func TestNonOwnerIsIndistinguishableFromMissing(t *testing.T) {
	images := &recordingTransformer{url: "https://img/x.png"}
	svc := newTestService(images)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)
	missing := uuid.NewString()

	for _, id := range []string{r.ID, missing, "not-a-uuid"} {
		_, err := svc.GetPrivate(ctx, ownerB, id)
		assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized, id)

		_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerB, ResumeID: id, Data: `{"title":"Hijacked"}`})
		assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized, id)

		_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerB, ResumeID: id, Data: `{}`, Image: &ImageUpload{Data: []byte("img")}})
		assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized, id)

		err = svc.Delete(ctx, ownerB, id)
		assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized, id)
	}
	assert.Empty(t, images.calls(), "no upload for records the caller cannot write")

	got, err := svc.GetPrivate(ctx, ownerA, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
}

func TestGetPublicIgnoresOwnership(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	_, err = svc.GetPublic(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"public":true}`})
	require.NoError(t, err)

	got, err := svc.GetPublic(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)

	_, err = svc.GetPublic(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScenarioCreateShareDelete(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	_, err = svc.GetPrivate(ctx, ownerB, r.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"public":true}`})
	require.NoError(t, err)

	pub, err := svc.GetPublic(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", pub.Title)

	require.NoError(t, svc.Delete(ctx, ownerA, r.ID))
	_, err = svc.GetPublic(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWithoutImageLeavesImageAsGiven(t *testing.T) {
	images := &recordingTransformer{url: "https://img/x.png"}
	svc := newTestService(images)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, UpdateInput{
		OwnerID:  ownerA,
		ResumeID: r.ID,
		Data:     `{"personal_info":{"full_name":"Ada","image":"https://cdn/mine.png"}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"full_name": "Ada", "image": "https://cdn/mine.png"}, updated.Content["personal_info"])

	updated, err = svc.Update(ctx, UpdateInput{
		OwnerID:  ownerA,
		ResumeID: r.ID,
		Data:     `{"personal_info":{"full_name":"Ada"}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"full_name": "Ada"}, updated.Content["personal_info"])
	assert.NotContains(t, updated.Content["personal_info"], "image")
	assert.Empty(t, images.calls())
	assert.Equal(t, 3, updated.Version)
}

func TestUpdateWithImageMergesURL(t *testing.T) {
	images := &recordingTransformer{url: "https://img/resume.png"}
	svc := newTestService(images)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, UpdateInput{
		OwnerID:  ownerA,
		ResumeID: r.ID,
		Data:     `{"personal_info":{"full_name":"Ada","email":"ada@example.com","image":"old"},"skills":["go"]}`,
		Image:    &ImageUpload{Data: []byte("img"), ContentType: "image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"full_name": "Ada",
		"email":     "ada@example.com",
		"image":     "https://img/resume.png",
	}, updated.Content["personal_info"])
	assert.Equal(t, []any{"go"}, updated.Content["skills"])

	calls := images.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "resume_"+r.ID+".png", calls[0].FileName)
	assert.Equal(t, "user-resumes", calls[0].Folder)
	assert.Equal(t, "image/png", calls[0].ContentType)
}

func TestUpdateBackgroundRemovalSwitch(t *testing.T) {
	tests := []struct {
		name   string
		remove bool
		want   string
	}{
		{name: "absent or false", remove: false, want: "w-300,h-300,fo-face"},
		{name: "true", remove: true, want: "w-300,h-300,fo-face,e-bgremove"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &recordingTransformer{url: "u"}
			svc := newTestService(images)
			ctx := context.Background()
			r, err := svc.Create(ctx, ownerA, "Draft")
			require.NoError(t, err)

			_, err = svc.Update(ctx, UpdateInput{
				OwnerID:          ownerA,
				ResumeID:         r.ID,
				Data:             `{}`,
				Image:            &ImageUpload{Data: []byte("img")},
				RemoveBackground: tt.remove,
			})
			require.NoError(t, err)
			calls := images.calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0].Pipeline)
		})
	}
}

func TestUpdateTransformFailureWritesNothing(t *testing.T) {
	for name, images := range map[string]*recordingTransformer{
		"error":   {err: errors.New("boom")},
		"timeout": {url: "u", delay: time.Second},
		"no url":  {url: ""},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(images)
			svc.ImageTimeout = 20 * time.Millisecond
			ctx := context.Background()
			r, err := svc.Create(ctx, ownerA, "Draft")
			require.NoError(t, err)

			_, err = svc.Update(ctx, UpdateInput{
				OwnerID:  ownerA,
				ResumeID: r.ID,
				Data:     `{"title":"Changed","template":"modern"}`,
				Image:    &ImageUpload{Data: []byte("img")},
			})
			assert.ErrorIs(t, err, ErrUpstream)

			got, err := svc.GetPrivate(ctx, ownerA, r.ID)
			require.NoError(t, err)
			assert.Equal(t, "Draft", got.Title)
			assert.Equal(t, "classic", got.Content["template"])
			assert.Equal(t, 1, got.Version)
		})
	}
}

func TestUpdateRejectsMalformedData(t *testing.T) {
	images := &recordingTransformer{url: "u"}
	svc := newTestService(images)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `not json`, Image: &ImageUpload{Data: []byte("img")}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"personal_info":"x"}`, Image: &ImageUpload{Data: []byte("img")}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, images.calls(), 1)
}

func TestUpdateIsTopLevelReplace(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"personal_info":{"full_name":"Ada","phone":"1"}}`})
	require.NoError(t, err)
	got, err := svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"personal_info":{"full_name":"Ada L."},"userId":"` + ownerB + `"}`})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"full_name": "Ada L."}, got.Content["personal_info"])
	assert.Equal(t, "classic", got.Content["template"], "absent keys keep their value")
	assert.Equal(t, ownerA, got.UserID)
}

func TestConcurrentUpdatesNeverMix(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			data := fmt.Sprintf(`{"professional_summary":"writer-%d","template":"writer-%d","skills":["writer-%d"]}`, n, n, n)
			_, err := svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: data})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.GetPrivate(ctx, ownerA, r.ID)
	require.NoError(t, err)
	winner := got.Content["professional_summary"]
	assert.Equal(t, winner, got.Content["template"])
	assert.Equal(t, []any{winner}, got.Content["skills"])
	assert.Equal(t, writers+1, got.Version)
}

func TestPublicReadsUseCacheAndWritesInvalidate(t *testing.T) {
	svc := newTestService(nil)
	cache := newMapCache()
	svc.Cache = cache
	ctx := context.Background()

	r, err := svc.Create(ctx, ownerA, "Draft")
	require.NoError(t, err)
	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"public":true}`})
	require.NoError(t, err)

	entry, ok := cache.entry(t, publicCacheKey(r.ID))
	require.True(t, ok)
	assert.True(t, entry.Gone)

	// Reads after a write skip the fill until the tombstone expires.
	_, err = svc.GetPublic(ctx, r.ID)
	require.NoError(t, err)
	entry, _ = cache.entry(t, publicCacheKey(r.ID))
	assert.True(t, entry.Gone)

	require.NoError(t, cache.Delete(ctx, publicCacheKey(r.ID)))
	_, err = svc.GetPublic(ctx, r.ID)
	require.NoError(t, err)
	entry, ok = cache.entry(t, publicCacheKey(r.ID))
	require.True(t, ok)
	require.NotNil(t, entry.Resume)
	assert.Equal(t, "Draft", entry.Resume.Title)

	got, err := svc.GetPublic(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"public":false}`})
	require.NoError(t, err)
	entry, _ = cache.entry(t, publicCacheKey(r.ID))
	assert.True(t, entry.Gone)

	_, err = svc.GetPublic(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublicFillCannotResurrectAfterWrite(t *testing.T) {
	writes := map[string]func(svc *Service, id string) error{
		"delete": func(svc *Service, id string) error {
			return svc.Delete(context.Background(), ownerA, id)
		},
		"unpublish": func(svc *Service, id string) error {
			_, err := svc.Update(context.Background(), UpdateInput{OwnerID: ownerA, ResumeID: id, Data: `{"public":false}`})
			return err
		},
	}
	for name, write := range writes {
		t.Run(name, func(t *testing.T) {
			repo := &pausingRepo{Repo: NewMemoryRepo(), read: make(chan struct{}), release: make(chan struct{})}
			svc := NewService(repo, nil)
			cache := newMapCache()
			svc.Cache = cache
			ctx := context.Background()

			r, err := svc.Create(ctx, ownerA, "Draft")
			require.NoError(t, err)
			_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: r.ID, Data: `{"public":true}`})
			require.NoError(t, err)
			require.NoError(t, cache.Delete(ctx, publicCacheKey(r.ID)))

			done := make(chan error, 1)
			go func() {
				_, err := svc.GetPublic(ctx, r.ID)
				done <- err
			}()

			<-repo.read
			require.NoError(t, write(svc, r.ID))
			close(repo.release)
			require.NoError(t, <-done)

			got, err := svc.GetPublic(ctx, r.ID)
			assert.ErrorIs(t, err, ErrNotFound, "still served publicly: title=%q", got.Title)
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService(nil)
	clock := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	ctx := context.Background()

	first, err := svc.Create(ctx, ownerA, "First")
	require.NoError(t, err)
	second, err := svc.Create(ctx, ownerA, "Second")
	require.NoError(t, err)
	_, err = svc.Create(ctx, ownerB, "Other")
	require.NoError(t, err)
	_, err = svc.Update(ctx, UpdateInput{OwnerID: ownerA, ResumeID: first.ID, Data: `{"template":"modern"}`})
	require.NoError(t, err)

	list, err := svc.List(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}
