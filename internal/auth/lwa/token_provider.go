// Package lwa implements the OAuth refresh-token grant used to obtain
// short-lived bearer tokens for the fulfillment API, with expiry-aware
// in-memory caching. The cache never outlives the process; nothing is
// persisted across restarts.
package lwa

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/orderforge/spapi-fulfill/internal/errors"
)

// DefaultTokenEndpoint is the production token endpoint used when the
// configuration does not override it.
const DefaultTokenEndpoint = "https://api.amazon.com/auth/o2/token"

// expiryBuffer guards against presenting a token that expires mid-flight:
// a cached token within this window of its expiry is treated as stale.
const expiryBuffer = 60 * time.Second

// Credentials hold the immutable refresh-grant inputs.
type Credentials struct {
	// ClientID and ClientSecret identify the OAuth client application.
	ClientID     string
	ClientSecret string
	// RefreshToken is the long-lived credential exchanged for access tokens.
	RefreshToken string
	// TokenEndpoint is the POST target for the refresh grant.
	TokenEndpoint string
}

// cachedToken pairs a token value with its absolute expiry. It is only ever
// read or replaced as a unit under the provider mutex.
type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenProvider exchanges a long-lived refresh token for short-lived access
// tokens and caches the result until near expiry. It is safe for concurrent
// use: callers observing a stale token coalesce onto a single in-flight
// refresh instead of each hitting the token endpoint.
type TokenProvider struct {
	creds      Credentials
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	token *cachedToken
	group singleflight.Group
}

// NewTokenProvider creates a TokenProvider. A nil httpClient falls back to a
// default client with a 30-second timeout.
func NewTokenProvider(creds Credentials, httpClient *http.Client) *TokenProvider {
	if creds.TokenEndpoint == "" {
		creds.TokenEndpoint = DefaultTokenEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenProvider{
		creds:      creds,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// AccessToken returns a valid bearer token, refreshing through the token
// endpoint when the cached one is absent or within 60 seconds of expiry.
// Exactly one refresh is in flight at a time; queued callers share its
// result. No retry is performed here.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	value, err, _ := p.group.Do("refresh", func() (any, error) {
		// A refresh that completed while this caller was queued satisfies
		// it without another network call.
		if token, ok := p.cached(); ok {
			return token, nil
		}
		return p.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// cached returns the cached token value when it is still outside the expiry
// buffer.
func (p *TokenProvider) cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return "", false
	}
	if p.now().Add(expiryBuffer).Before(p.token.expiresAt) {
		return p.token.value, true
	}
	return "", false
}

// refresh performs the refresh-token grant and replaces the cached token
// wholesale on success.
func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {p.creds.RefreshToken},
		"client_id":     {p.creds.ClientID},
		"client_secret": {p.creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.creds.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", apperrors.NewTransport("failed to create token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewTransport("token endpoint request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewTransport("failed to read token response", err)
	}

	parsed := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !parsed.IsObject() {
		return "", apperrors.NewAuth("invalid response")
	}

	if resp.StatusCode != http.StatusOK {
		message := parsed.Get("error_description").String()
		if message == "" {
			message = parsed.Get("error").String()
		}
		if message == "" {
			message = "Unknown error"
		}
		return "", apperrors.NewAuth(message)
	}

	tokenField := parsed.Get("access_token")
	expiresIn := parsed.Get("expires_in").Int()
	if tokenField.Type != gjson.String || tokenField.Str == "" || expiresIn <= 0 {
		return "", apperrors.NewAuth("missing access token or expiration")
	}

	expiresAt := p.now().Add(time.Duration(expiresIn) * time.Second)
	p.mu.Lock()
	p.token = &cachedToken{value: tokenField.Str, expiresAt: expiresAt}
	p.mu.Unlock()

	log.Debugf("lwa: refreshed access token, valid for %ds", expiresIn)
	return tokenField.Str, nil
}
