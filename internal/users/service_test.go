package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (plainHasher) Verify(pw, storedHash string) error {
	if storedHash != "hashed:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type stubTokens struct{}

func (stubTokens) Issue(accountID string) (string, error) { return "token-for-" + accountID, nil }

func newTestService() *Service {
	return NewService(NewMemoryRepo(), plainHasher{}, stubTokens{})
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: " Ada ", Email: " Ada@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", reg.User.Name)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, "token-for-"+reg.User.ID, reg.Token)
	assert.NotEqual(t, "password123", reg.User.PasswordHash)

	login, err := svc.Login(ctx, "ADA@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	got, err := svc.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.User.Email, got.Email)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "A@example.com", Password: "password456"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing name", in: RegisterInput{Email: "a@example.com", Password: "password123"}},
		{name: "bad email", in: RegisterInput{Name: "A", Email: "not-an-email", Password: "password123"}},
		{name: "short password", in: RegisterInput{Name: "A", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpsertFromOAuth(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.UpsertFromOAuth(ctx, OAuthIdentity{Subject: "g-1", Email: "g@example.com", Name: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", first.User.Name)

	again, err := svc.UpsertFromOAuth(ctx, OAuthIdentity{Subject: "g-1", Email: "g@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)

	// Google account without a password cannot log in with an empty hash.
	_, err = svc.Login(ctx, "g@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpsertFromOAuthLinksExistingEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	linked, err := svc.UpsertFromOAuth(ctx, OAuthIdentity{Subject: "g-2", Email: "A@example.com"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, linked.User.ID)

	bySub, err := svc.Repo.GetByGoogleSub(ctx, "g-2")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, bySub.ID)
}

func TestGetByIDMalformedIsNotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
