package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different
// transports. Get and PostForm return the response regardless of status;
// classifying non-2xx statuses is the caller's concern.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	PostForm(ctx context.Context, url string, form map[string]string) (Response, error)
	Download(ctx context.Context, url, destPath string) error
}
