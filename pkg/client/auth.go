package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"oims/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

type AuthClient struct {
	httpClient *HttpClient
}

// NewAuthClient builds a client for the token endpoints. It carries no
// TokenSource of its own: token issuance and refresh are unauthenticated.
func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		httpClient: NewHttpClient(baseURL),
	}
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}
	resp, err := c.httpClient.POST(ctx, "/users/token/", body)
	if err != nil {
		return nil, err
	}
	return DecodeObject[TokenPair](resp)
}

func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh": refreshToken}
	resp, err := c.httpClient.POST(ctx, "/users/token/refresh/", body)
	if err != nil {
		return nil, err
	}
	pair, err := DecodeObject[TokenPair](resp)
	if err != nil {
		return nil, err
	}
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return pair, nil
}

func (c *AuthClient) GetCurrentUser(ctx context.Context, tokens TokenSource) (*model.User, error) {
	authed := NewHttpClient(c.httpClient.BaseURL).WithTokens(tokens)
	resp, err := authed.GET(ctx, "/users/me/")
	if err != nil {
		return nil, err
	}
	return DecodeObject[model.User](resp)
}

// refreshSkew renews the access token slightly before its exp claim so a
// token never expires mid-request.
const refreshSkew = 30 * time.Second

// TokenProvider is a TokenSource backed by username/password credentials.
// It logs in lazily, caches the access token until close to expiry, and
// refreshes through the refresh endpoint, falling back to a full login when
// the refresh token itself is rejected.
type TokenProvider struct {
	auth     *AuthClient
	username string
	password string

	mu        sync.Mutex
	access    string
	refresh   string
	expiresAt time.Time
}

func NewTokenProvider(auth *AuthClient, username, password string) *TokenProvider {
	return &TokenProvider{
		auth:     auth,
		username: username,
		password: password,
	}
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.access != "" && time.Now().Add(refreshSkew).Before(p.expiresAt) {
		return p.access, nil
	}

	if p.refresh != "" {
		pair, err := p.auth.Refresh(ctx, p.refresh)
		if err == nil {
			p.store(pair)
			return p.access, nil
		}
	}

	pair, err := p.auth.Login(ctx, p.username, p.password)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	p.store(pair)
	return p.access, nil
}

func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.access = ""
	p.expiresAt = time.Time{}
}

func (p *TokenProvider) store(pair *TokenPair) {
	p.access = pair.Access
	if pair.Refresh != "" {
		p.refresh = pair.Refresh
	}
	p.expiresAt = tokenExpiry(pair.Access)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend verifies, we only schedule refreshes. Tokens without a readable
// exp get a conservative one-minute lifetime.
func tokenExpiry(access string) time.Time {
	fallback := time.Now().Add(time.Minute)

	token, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return fallback
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}
