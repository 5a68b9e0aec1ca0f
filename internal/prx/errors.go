package prx

import (
	"errors"
	"fmt"
	"strings"
)

// Auth-layer errors. All of these are fatal for a sync run.
var (
	// ErrMissingCredentials is returned before any network call when the
	// client id or secret is not configured.
	ErrMissingCredentials = errors.New("prx: client id and secret are not configured")

	// ErrAuthRequestFailed is a transport-level failure of the token request.
	ErrAuthRequestFailed = errors.New("prx: auth request failed")

	// ErrInvalidAuthResponse means the token response carried no access_token.
	ErrInvalidAuthResponse = errors.New("prx: invalid auth response")
)

// ErrRequestFailed is a transport-level failure of an API call.
var ErrRequestFailed = errors.New("prx: request failed")

// APIError is any API response with status >= 400. It carries the raw body
// so the caller can log or surface it.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prx: api error: status %d: %s", e.Status, bodySnippet(e.Body))
}

// bodySnippet trims a response body for error messages.
func bodySnippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 512 {
		body = body[:512]
	}
	return body
}
