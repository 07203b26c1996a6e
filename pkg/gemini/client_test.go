package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	APIKey string
	Body   map[string]any
}

func newGeminiServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.APIKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintln(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

const okBody = `{
	"candidates": [{"content": {"role": "model", "parts": [{"text": "[{\"persona\":\"Gallerist\",\"post\":\"Sculpted.\"}]"}]}, "finishReason": "STOP"}],
	"usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 40, "totalTokenCount": 160}
}`

func TestNewClient_RequiresKey(t *testing.T) {
	c, err := NewClient(context.Background(), "")
	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestGenerateContent_TextOnly(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK, okBody)

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := c.GenerateContent(context.Background(), Request{Prompt: "write captions"})
	require.NoError(t, err)

	assert.Equal(t, `[{"persona":"Gallerist","post":"Sculpted."}]`, resp.Text)
	assert.Equal(t, int32(120), resp.Usage.PromptTokens)
	assert.Equal(t, int32(160), resp.Usage.TotalTokens)
	assert.True(t, strings.HasSuffix(captured.Path, "models/"+DefaultModel+":generateContent"), captured.Path)
	assert.Equal(t, "test-key", captured.APIKey)

	contents := captured.Body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "write captions", parts[0].(map[string]any)["text"])
}

func TestGenerateContent_WithImages(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK, okBody)

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	img := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	_, err = c.GenerateContent(context.Background(), Request{
		Model:  "gemini-2.5-flash",
		Prompt: "look",
		Images: []InlineImage{{Data: img, MIMEType: "image/jpeg"}, {Data: img, MIMEType: "image/jpeg"}},
	})
	require.NoError(t, err)

	assert.Contains(t, captured.Path, "gemini-2.5-flash:generateContent")
	parts := captured.Body["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 3)
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(img), inline["data"])
}

func TestGenerateContent_APIError(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)

	c, err := NewClient(context.Background(), "bad-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := c.GenerateContent(context.Background(), Request{Prompt: "x"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
}

func TestGenerateContent_EmptyCandidates(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusOK, `{"candidates": []}`)

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.GenerateContent(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerateContent_ResponseMIMEType(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK, okBody)

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.GenerateContent(context.Background(), Request{Prompt: "x", ResponseMIMEType: "application/json"})
	require.NoError(t, err)

	cfg, ok := captured.Body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing")
	assert.Equal(t, "application/json", cfg["responseMimeType"])
}

func TestGenerateContent_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, okBody)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "test-key",
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.GenerateContent(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
