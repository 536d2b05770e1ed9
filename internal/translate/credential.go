package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Credential supplies the bearer token for the LLM endpoint. The translator
// owns it; nothing else reads or refreshes it.
type Credential interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops a cached token after the endpoint rejected it.
	Invalidate()
}

// StaticCredential is a fixed API key.
type StaticCredential string

func (c StaticCredential) Token(ctx context.Context) (string, error) {
	if c == "" {
		return "", errors.New("api key is empty")
	}
	return string(c), nil
}

func (StaticCredential) Invalidate() {}

// OAuthConfig configures an OAuthCredential.
type OAuthConfig struct {
	AuthURL string
	Key     string // pre-encoded Basic authorization key
	Scope   string
	Margin  time.Duration // refresh this long before expiry
	Client  *http.Client
}

// OAuthCredential exchanges a Basic authorization key for a short-lived
// access token and caches it until shortly before it expires.
type OAuthCredential struct {
	cfg      OAuthConfig
	now      func() time.Time
	newRqUID func() string

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewOAuthCredential(cfg OAuthConfig) *OAuthCredential {
	if cfg.Margin <= 0 {
		cfg.Margin = time.Minute
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &OAuthCredential{
		cfg:      cfg,
		now:      time.Now,
		newRqUID: uuid.NewString,
	}
}

// Token returns the cached token or fetches a new one. Concurrent callers
// share a single fetch.
func (c *OAuthCredential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires.Add(-c.cfg.Margin)) {
		return c.token, nil
	}

	token, expires, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token, c.expires = token, expires
	return token, nil
}

func (c *OAuthCredential) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expires = time.Time{}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
}

func (c *OAuthCredential) fetch(ctx context.Context) (string, time.Time, error) {
	body := url.Values{"scope": {c.cfg.Scope}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", c.newRqUID())
	req.Header.Set("Authorization", "Basic "+c.cfg.Key)

	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", time.Time{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, errors.New("token response has no access_token")
	}

	expires := c.now().Add(30 * time.Minute)
	if tr.ExpiresAt > 0 {
		expires = time.UnixMilli(tr.ExpiresAt)
	}
	return tr.AccessToken, expires, nil
}
