// Package notion creates pages in a Notion database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Notion API host.
	DefaultBaseURL = "https://api.notion.com"
	// APIVersion is sent as the Notion-Version header.
	APIVersion = "2022-06-28"
)

// Client defines the Notion API operations used by this application.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// APIError is a non-200 answer from the Notion API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: status %d: %s", e.StatusCode, e.Message)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default Notion rate limit (3 req/s).
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) ClientOption {
	return func(c *notionClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *notionClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *notionClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// notionClient implements Client over the REST API. Calls are attempted once.
type notionClient struct {
	token   string
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClient creates a new Notion client with the given integration token.
// By default, API calls are throttled to 3 req/s (Notion's rate limit).
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
		timeout: 5 * time.Second,
		limiter: rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: encode page")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "notion: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Notion-Version", APIVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "notion: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var page notionapi.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, eris.Wrap(err, "notion: decode page")
	}
	return &page, nil
}

func decodeError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: "Unknown Error"}
	var body notionapi.Error
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		apiErr.Code = string(body.Code)
	}
	return apiErr
}
