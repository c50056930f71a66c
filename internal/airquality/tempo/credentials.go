package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// DefaultLoginURL issues Earthdata Login bearer tokens.
const DefaultLoginURL = "https://urs.earthdata.nasa.gov/api/users/find_or_create_token"

// DefaultTokenTTL applies when a token carries no readable exp claim.
const DefaultTokenTTL = 24 * time.Hour

// expirySkew renews tokens slightly before they lapse.
const expirySkew = time.Minute

var (
	// ErrNoCredentials means neither a token nor a username/password pair
	// was configured.
	ErrNoCredentials = errors.New("no earthdata credentials configured")

	// ErrTokenRejected means Earthdata Login refused the credentials, or a
	// static token has expired.
	ErrTokenRejected = errors.New("earthdata credentials rejected")
)

// CredentialConfig configures a CredentialCache.
type CredentialConfig struct {
	// StaticToken is used as-is until it expires.
	StaticToken string

	// Username and Password obtain tokens from LoginURL with basic auth.
	Username string
	Password string

	LoginURL   string
	HTTPClient HTTPDoer
	Clock      clockwork.Clock

	// DefaultTTL overrides DefaultTokenTTL.
	DefaultTTL time.Duration
}

// CredentialCache holds an Earthdata bearer token and its expiry. It is
// safe for concurrent use.
type CredentialCache struct {
	cfg CredentialConfig

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewCredentialCache creates a CredentialCache.
func NewCredentialCache(cfg CredentialConfig) *CredentialCache {
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTokenTTL
	}
	return &CredentialCache{cfg: cfg}
}

// Configured reports whether any credential source is set.
func (c *CredentialCache) Configured() bool {
	return c.cfg.StaticToken != "" || (c.cfg.Username != "" && c.cfg.Password != "")
}

// Token returns a valid bearer token, logging in again when the cached one
// is missing or about to expire.
func (c *CredentialCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock.Now()
	if c.token != "" && now.Before(c.expiresAt.Add(-expirySkew)) {
		return c.token, nil
	}

	var token string
	switch {
	case c.cfg.StaticToken != "":
		token = c.cfg.StaticToken
	case c.cfg.Username != "" && c.cfg.Password != "":
		t, err := c.login(ctx)
		if err != nil {
			return "", err
		}
		token = t
	default:
		return "", ErrNoCredentials
	}

	expiresAt := c.expiry(token, now)
	if !now.Before(expiresAt.Add(-expirySkew)) {
		return "", fmt.Errorf("%w: token expired at %s", ErrTokenRejected, expiresAt.Format(time.RFC3339))
	}

	c.token, c.expiresAt = token, expiresAt
	return token, nil
}

// ExpiresAt returns the expiry of the cached token, zero when none.
func (c *CredentialCache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// Reset drops the cached token.
func (c *CredentialCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.expiresAt = "", time.Time{}
}

// expiry reads the exp claim without verifying the signature: the token is
// only forwarded, never trusted locally.
func (c *CredentialCache) expiry(token string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return now.Add(c.cfg.DefaultTTL)
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *CredentialCache) login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("earthdata login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrTokenRejected, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("earthdata login: unexpected status %d", resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("earthdata login: empty access token")
	}
	return body.AccessToken, nil
}
