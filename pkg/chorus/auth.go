package chorus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// AuthMethod is the credential attached to a single call, either a raw API
// key or a short-lived bearer token.
type AuthMethod struct {
	kind  authKind
	value string
}

type authKind int

const (
	authAPIKey authKind = iota
	authAccessToken
)

func APIKeyAuth(key string) AuthMethod {
	return AuthMethod{kind: authAPIKey, value: key}
}

func AccessTokenAuth(token string) AuthMethod {
	return AuthMethod{kind: authAccessToken, value: token}
}

// Header renders the credential as an HTTP header name/value pair.
func (a AuthMethod) Header() (string, string) {
	if a.kind == authAccessToken {
		return "Authorization", "Bearer " + a.value
	}
	return "X-Api-Key", a.value
}

// QueryParam renders the credential as a WebSocket handshake query parameter.
// The streaming endpoint authenticates on the connection string, not headers.
func (a AuthMethod) QueryParam() (string, string) {
	if a.kind == authAccessToken {
		return "access_token", a.value
	}
	return "api_key", a.value
}

// CredentialProvider supplies the current credential for each call.
type CredentialProvider interface {
	Credential(ctx context.Context) (AuthMethod, error)
}

// StaticProvider always returns the same credential.
type StaticProvider struct {
	method AuthMethod
}

func NewStaticProvider(method AuthMethod) *StaticProvider {
	return &StaticProvider{method: method}
}

func (p *StaticProvider) Credential(ctx context.Context) (AuthMethod, error) {
	return p.method, nil
}

// tokenRefreshSafetyMargin forces refresh before the reported expiry so a
// token never goes stale mid-call.
const tokenRefreshSafetyMargin = 60 * time.Second

// defaultTokenTTL applies when the token endpoint reports no TTL and the
// token itself carries no exp claim.
const defaultTokenTTL = 10 * time.Minute

// RefreshingProvider fetches and caches a bearer token from a token
// endpoint. The cache is read and refreshed under a single mutex held across
// the refresh round trip, so concurrent callers observe exactly one refresh.
type RefreshingProvider struct {
	endpoint   string
	apiKey     string
	headers    map[string]string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewRefreshingProvider(endpoint, apiKey string, headers map[string]string) *RefreshingProvider {
	return &RefreshingProvider{
		endpoint:   endpoint,
		apiKey:     apiKey,
		headers:    headers,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Credential returns the cached token while it is still comfortably inside
// its lifetime, otherwise refreshes. A refresh failure surfaces immediately
// as an authentication error; the general retry policy never applies here.
func (p *RefreshingProvider) Credential(ctx context.Context) (AuthMethod, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.expiresAt.Add(-tokenRefreshSafetyMargin)) {
		return AccessTokenAuth(p.token), nil
	}

	if err := p.refresh(ctx); err != nil {
		return AuthMethod{}, err
	}
	return AccessTokenAuth(p.token), nil
}

// Invalidate drops the cached token, forcing a refresh on the next call.
func (p *RefreshingProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.expiresAt = time.Time{}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// refresh performs the token-fetch round trip. Caller holds p.mu.
func (p *RefreshingProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return NewAuthError(fmt.Sprintf("build token request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", p.apiKey)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return NewAuthError(fmt.Sprintf("token refresh failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewAuthError(fmt.Sprintf("read token response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return NewAuthError(fmt.Sprintf("token endpoint returned %s", resp.Status)).
			AddDetail("status_code", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return NewAuthError(fmt.Sprintf("decode token response: %v", err))
	}
	token := tr.AccessToken
	if token == "" {
		token = tr.Token
	}
	if token == "" {
		return NewAuthError("token endpoint returned no token")
	}

	expiresAt := time.Time{}
	if tr.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if at, err := TokenExpiry(token); err == nil {
		expiresAt = at
	} else {
		expiresAt = time.Now().Add(defaultTokenTTL)
	}

	p.token = token
	p.expiresAt = expiresAt

	GetGlobalLogger().WithField("expires_at", expiresAt.Format(time.RFC3339)).
		Debug("access token refreshed")
	return nil
}
