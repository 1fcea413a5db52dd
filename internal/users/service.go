package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const minPasswordLength = 8

var validate = validator.New()

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(pw, storedHash string) error
}

// TokenIssuer signs session tokens for an account.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

type Service struct {
	Repo   Repo
	Hasher PasswordHasher
	Tokens TokenIssuer
	Now    func() time.Time
}

func NewService(repo Repo, hasher PasswordHasher, tokens TokenIssuer) *Service {
	return &Service{Repo: repo, Hasher: hasher, Tokens: tokens, Now: time.Now}
}

// RegisterInput carries a password registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is an authenticated account plus its token.
type Session struct {
	User  User
	Token string
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil || s.Hasher == nil || s.Tokens == nil {
		return errors.New("users service not configured")
	}
	return nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return Session{}, fmt.Errorf("%w: name is required and must be at most 100 characters", ErrInvalidInput)
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return Session{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return Session{}, err
	}
	return s.signIn(user)
}

// Login checks credentials. Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.signIn(user)
}

// UpsertFromOAuth finds or creates the account for a Google identity and signs it in.
// An existing password account with the same email is linked rather than duplicated.
func (s *Service) UpsertFromOAuth(ctx context.Context, id OAuthIdentity) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	sub := strings.TrimSpace(id.Subject)
	email := normalizeEmail(id.Email)
	if sub == "" || email == "" {
		return Session{}, fmt.Errorf("%w: subject and email are required", ErrInvalidInput)
	}

	user, err := s.Repo.GetByGoogleSub(ctx, sub)
	if err == nil {
		return s.signIn(user)
	}
	if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	user, err = s.Repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.Repo.LinkGoogle(ctx, user.ID, sub); err != nil {
			return Session{}, err
		}
		user.GoogleSub = sub
		return s.signIn(user)
	case !errors.Is(err, ErrNotFound):
		return Session{}, err
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = email
	}
	now := s.now()
	user = User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		GoogleSub: sub,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return Session{}, err
	}
	return s.signIn(user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if _, err := uuid.Parse(strings.TrimSpace(userID)); err != nil {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) signIn(user User) (Session, error) {
	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
