package prx

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ampers-mn/prx-sync/pkg/httpclient"
)

// PRX tokens last an hour in practice. The expiry reported by the server is
// deliberately not parsed; a fixed window from issuance is conservative and
// at worst discards a still-valid token early.
const tokenTTL = time.Hour

// Token is a bearer token with its local expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at the given instant.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// TokenProvider obtains OAuth2 client-credentials tokens from the PRX id
// server and caches the current one in memory. The cache does not survive
// process restarts; re-auth is cheap.
type TokenProvider struct {
	client       httpclient.Client
	idBaseURL    string
	clientID     string
	clientSecret string

	mu    sync.Mutex
	token Token
	now   func() time.Time
}

// NewTokenProvider builds a provider for the given id server and credentials.
func NewTokenProvider(client httpclient.Client, idBaseURL, clientID, clientSecret string) *TokenProvider {
	return &TokenProvider{
		client:       client,
		idBaseURL:    idBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// GetToken returns the cached token when still valid, otherwise performs a
// client-credentials token request. Credentials are checked before any
// network call.
func (p *TokenProvider) GetToken(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.token.Valid(now) {
		return p.token, nil
	}

	if p.clientID == "" || p.clientSecret == "" {
		return Token{}, ErrMissingCredentials
	}

	resp, err := p.client.PostForm(ctx, p.idBaseURL+"/token", map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     p.clientID,
		"client_secret": p.clientSecret,
	})
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrAuthRequestFailed, err)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: %s", ErrInvalidAuthResponse, bodySnippet(string(resp.Body())))
	}

	p.token = Token{
		Value:     body.AccessToken,
		ExpiresAt: now.Add(tokenTTL),
	}
	return p.token, nil
}
