package prx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ampers-mn/prx-sync/internal/domain"
	"github.com/ampers-mn/prx-sync/pkg/httpclient"
)

// RequestTimeout is the per-call timeout for every PRX API request.
// Callers constructing the HTTP client should apply it.
const RequestTimeout = 30 * time.Second

// TokenSource yields bearer tokens for API calls.
type TokenSource interface {
	GetToken(ctx context.Context) (Token, error)
}

// Client is an authenticated wrapper over the PRX CMS API. It performs no
// retries; every failure surfaces immediately as a typed error and the
// caller decides whether the run aborts or continues.
type Client struct {
	http       httpclient.Client
	tokens     TokenSource
	cmsBaseURL string
}

// NewClient builds an API client against the given CMS base URL.
func NewClient(http httpclient.Client, tokens TokenSource, cmsBaseURL string) *Client {
	return &Client{
		http:       http,
		tokens:     tokens,
		cmsBaseURL: cmsBaseURL,
	}
}

// Get performs an authenticated GET against the given endpoint and returns
// the raw response body. Token errors propagate unchanged; transport
// failures map to ErrRequestFailed; any status >= 400 maps to *APIError.
func (c *Client) Get(ctx context.Context, endpoint string, query map[string]string) ([]byte, error) {
	tok, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	target := c.cmsBaseURL + endpoint
	if len(query) > 0 {
		q := url.Values{}
		for k, v := range query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	resp, err := c.http.Get(ctx, target, map[string]string{
		"Authorization": "Bearer " + tok.Value,
		"Content-Type":  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}

// storyEnvelope is the HAL page shape of the stories listing.
type storyEnvelope struct {
	Embedded struct {
		Items []domain.RemoteStory `json:"prx:items"`
	} `json:"_embedded"`
}

// FetchStories returns one page of stories for the account, in the order
// the API returned them. An empty page is not an error.
func (c *Client) FetchStories(ctx context.Context, accountID int64, page, perPage int) ([]domain.RemoteStory, error) {
	endpoint := fmt.Sprintf("/authorization/accounts/%d/stories", accountID)
	raw, err := c.Get(ctx, endpoint, map[string]string{
		"page": fmt.Sprintf("%d", page),
		"per":  fmt.Sprintf("%d", perPage),
	})
	if err != nil {
		return nil, err
	}

	var env storyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("prx: decode stories page: %w", err)
	}
	return env.Embedded.Items, nil
}

// TestConnection calls the authorization endpoint and validates the
// response shape. Used by the test-auth command.
func (c *Client) TestConnection(ctx context.Context) error {
	raw, err := c.Get(ctx, "/authorization", nil)
	if err != nil {
		return err
	}

	var body struct {
		ID    *int64                     `json:"id"`
		Links map[string]json.RawMessage `json:"_links"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("prx: decode authorization response: %w", err)
	}
	if body.ID == nil || len(body.Links) == 0 {
		return fmt.Errorf("prx: unexpected response shape from authorization endpoint")
	}
	return nil
}
