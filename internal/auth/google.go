// Package auth implements Google sign-in on top of the account service.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/users"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AccountLinker resolves a Google identity to a signed-in account.
type AccountLinker interface {
	UpsertFromOAuth(ctx context.Context, id users.OAuthIdentity) (users.Session, error)
}

// identityProvider runs the OAuth code flow. Tests replace it.
type identityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (users.OAuthIdentity, error)
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	accounts   AccountLinker
	provider   identityProvider
	configured bool
	uiRedirect string
	stateTTL   time.Duration
	stateStore *stateStore
	now        func() time.Time
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(accounts AccountLinker, clientID, clientSecret, redirectURL, uiRedirect string) *GoogleService {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
	return &GoogleService{
		accounts:   accounts,
		provider:   &googleProvider{config: cfg, userInfoURL: userInfoURL},
		configured: clientID != "" && clientSecret != "" && redirectURL != "" && uiRedirect != "",
		uiRedirect: uiRedirect,
		stateTTL:   5 * time.Minute,
		stateStore: newStateStore(),
		now:        time.Now,
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/google/start", s.start)
	rg.GET("/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google sign-in is not configured", nil)
		return
	}
	state := uuid.NewString()
	s.stateStore.put(state, s.now().Add(s.stateTTL))
	c.Redirect(http.StatusFound, s.provider.AuthCodeURL(state))
}

func (s *GoogleService) callback(c *gin.Context) {
	if !s.configured {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google sign-in is not configured", nil)
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !s.stateStore.consume(state, s.now()) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	identity, err := s.provider.Identify(ctx, code)
	if err != nil {
		telemetry.Warn("google.identify.failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	session, err := s.accounts.UpsertFromOAuth(ctx, identity)
	if err != nil {
		if errors.Is(err, users.ErrInvalidInput) {
			respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign in", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, session.Token)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

type googleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (p *googleProvider) Identify(ctx context.Context, code string) (users.OAuthIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return users.OAuthIdentity{}, fmt.Errorf("exchange code: %w", err)
	}
	resp, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return users.OAuthIdentity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return users.OAuthIdentity{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return users.OAuthIdentity{}, err
	}
	// v2 userinfo reports the subject as "id".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	if !info.VerifiedEmail {
		return users.OAuthIdentity{}, errors.New("google email not verified")
	}
	return users.OAuthIdentity{Subject: info.Sub, Email: info.Email, Name: info.Name}, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[state] = exp
}

// consume removes state and reports whether it was live at now. Expired entries are pruned.
func (s *stateStore) consume(state string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, exp := range s.items {
		if now.After(exp) {
			delete(s.items, k)
		}
	}
	if _, ok := s.items[state]; !ok {
		return false
	}
	delete(s.items, state)
	return true
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
