package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWithKeyThenOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.SaveWithKey(ctx, "user-resumes/resume_1.png", "image/png", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = store.SaveWithKey(ctx, "user-resumes/resume_1.png", "image/png", strings.NewReader("second"))
	require.NoError(t, err)

	rc, err := store.Open(ctx, "user-resumes/resume_1.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../escape.png", "/etc/passwd", "", "a/../../b"} {
		_, err := store.SaveWithKey(ctx, key, "image/png", strings.NewReader("x"))
		assert.Error(t, err, key)
		_, err = store.Open(ctx, key)
		assert.Error(t, err, key)
	}
}

func TestHonoursCanceledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.SaveWithKey(ctx, "a.png", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
