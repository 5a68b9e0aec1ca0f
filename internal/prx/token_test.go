package prx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ampers-mn/prx-sync/pkg/httpclient"
)

type fakeResponse struct {
	body   []byte
	status int
}

func (r *fakeResponse) Body() []byte    { return r.body }
func (r *fakeResponse) StatusCode() int { return r.status }

type fakeHTTPClient struct {
	getResp   *fakeResponse
	getErr    error
	postResp  *fakeResponse
	postErr   error
	postCalls int
	getCalls  int
	lastURL   string
	lastForm  map[string]string
	lastHead  map[string]string
}

func (c *fakeHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	c.getCalls++
	c.lastURL = url
	c.lastHead = headers
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.getResp, nil
}

func (c *fakeHTTPClient) PostForm(_ context.Context, url string, form map[string]string) (httpclient.Response, error) {
	c.postCalls++
	c.lastURL = url
	c.lastForm = form
	if c.postErr != nil {
		return nil, c.postErr
	}
	return c.postResp, nil
}

func (c *fakeHTTPClient) Download(context.Context, string, string) error { return nil }

func TestGetTokenRequestsAndCaches(t *testing.T) {
	client := &fakeHTTPClient{
		postResp: &fakeResponse{body: []byte(`{"access_token":"tok-1"}`), status: 200},
	}
	provider := NewTokenProvider(client, "https://id.prx.org", "cid", "secret")

	tok, err := provider.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if tok.Value != "tok-1" {
		t.Fatalf("expected tok-1, got %q", tok.Value)
	}
	if client.lastURL != "https://id.prx.org/token" {
		t.Fatalf("unexpected token URL %q", client.lastURL)
	}
	if got := client.lastForm["grant_type"]; got != "client_credentials" {
		t.Fatalf("unexpected grant_type %q", got)
	}

	// Second call must come from cache.
	if _, err := provider.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken cached: %v", err)
	}
	if client.postCalls != 1 {
		t.Fatalf("expected 1 token request, got %d", client.postCalls)
	}
}

func TestGetTokenRefreshesAfterExpiry(t *testing.T) {
	client := &fakeHTTPClient{
		postResp: &fakeResponse{body: []byte(`{"access_token":"tok-1"}`), status: 200},
	}
	provider := NewTokenProvider(client, "https://id.prx.org", "cid", "secret")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return base }

	if _, err := provider.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken: %v", err)
	}

	// Just inside the window: still cached.
	provider.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, err := provider.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken within TTL: %v", err)
	}
	if client.postCalls != 1 {
		t.Fatalf("expected cached token, got %d requests", client.postCalls)
	}

	// Past the window: refresh.
	provider.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, err := provider.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken after TTL: %v", err)
	}
	if client.postCalls != 2 {
		t.Fatalf("expected refresh, got %d requests", client.postCalls)
	}
}

func TestGetTokenMissingCredentials(t *testing.T) {
	client := &fakeHTTPClient{}
	provider := NewTokenProvider(client, "https://id.prx.org", "", "")

	_, err := provider.GetToken(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if client.postCalls != 0 {
		t.Fatalf("expected no network call without credentials")
	}
}

func TestGetTokenTransportFailure(t *testing.T) {
	client := &fakeHTTPClient{postErr: errors.New("dial timeout")}
	provider := NewTokenProvider(client, "https://id.prx.org", "cid", "secret")

	_, err := provider.GetToken(context.Background())
	if !errors.Is(err, ErrAuthRequestFailed) {
		t.Fatalf("expected ErrAuthRequestFailed, got %v", err)
	}
}

func TestGetTokenInvalidResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>maintenance</html>"},
		{"missing field", `{"token_type":"bearer"}`},
		{"empty token", `{"access_token":""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeHTTPClient{
				postResp: &fakeResponse{body: []byte(tc.body), status: 200},
			}
			provider := NewTokenProvider(client, "https://id.prx.org", "cid", "secret")

			_, err := provider.GetToken(context.Background())
			if !errors.Is(err, ErrInvalidAuthResponse) {
				t.Fatalf("expected ErrInvalidAuthResponse, got %v", err)
			}
		})
	}
}
