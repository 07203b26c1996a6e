package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func samplePage() *notionapi.PageCreateRequest {
	return &notionapi.PageCreateRequest{
		Parent: DatabaseParent("db-123"),
		Properties: notionapi.Properties{
			"Product Name": Title("Silk Wrap Dress"),
			"Persona":      RichText("Gallerist"),
			"Status":       Status("Draft"),
		},
	}
}

func TestCreatePage(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/pages", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, APIVersion, r.Header.Get("Notion-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
	}))
	defer ts.Close()

	c := NewClient("secret-token", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithRateLimit(0))
	page, err := c.CreatePage(context.Background(), samplePage())
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("page-1"), page.ID)

	parent := body["parent"].(map[string]any)
	assert.Equal(t, "db-123", parent["database_id"])
	props := body["properties"].(map[string]any)
	title := props["Product Name"].(map[string]any)["title"].([]any)
	assert.Equal(t, "Silk Wrap Dress", title[0].(map[string]any)["text"].(map[string]any)["content"])
	status := props["Status"].(map[string]any)["status"].(map[string]any)
	assert.Equal(t, "Draft", status["name"])
}

func TestCreatePage_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"bad token"}`))
	}))
	defer ts.Close()

	c := NewClient("t", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	_, err := c.CreatePage(context.Background(), samplePage())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, "bad token", apiErr.Message)
}

func TestCreatePage_UnparseableError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	}))
	defer ts.Close()

	c := NewClient("t", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	_, err := c.CreatePage(context.Background(), samplePage())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Unknown Error", apiErr.Message)
}

func TestCreatePage_NoRetryOnRateLimit(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer ts.Close()

	c := NewClient("t", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	_, err := c.CreatePage(context.Background(), samplePage())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCreatePage_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	c := NewClient("t", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithTimeout(50*time.Millisecond))
	_, err := c.CreatePage(context.Background(), samplePage())
	require.Error(t, err)

	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}

func TestCreatePage_RateLimitCancelled(t *testing.T) {
	c := NewClient("t", WithRateLimit(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreatePage(ctx, samplePage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
}
