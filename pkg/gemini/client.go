// Package gemini wraps the Google GenAI SDK for multimodal text generation.
package gemini

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is the model used when a request does not name one.
const DefaultModel = "gemini-flash-latest"

// Client defines the Gemini operations used by the campaign generator.
type Client interface {
	GenerateContent(ctx context.Context, req Request) (*Response, error)
}

// Request is one generateContent call: a text prompt plus inline images.
type Request struct {
	Model            string
	Prompt           string
	Images           []InlineImage
	ResponseMIMEType string
}

// InlineImage is an image sent inline with the prompt.
type InlineImage struct {
	Data     []byte
	MIMEType string
}

// Response is the text answer of the model.
type Response struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens    int32
	CandidateTokens int32
	TotalTokens     int32
}

// Option configures the client.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPClient = hc
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.Timeout = &d
	}
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client for the given key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.ResponseMIMEType != "" {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: req.ResponseMIMEType}
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &Response{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			PromptTokens:    resp.UsageMetadata.PromptTokenCount,
			CandidateTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:     resp.UsageMetadata.TotalTokenCount,
		}
	}
	zap.L().Debug("gemini usage",
		zap.String("model", modelName),
		zap.Int32("prompt_tokens", out.Usage.PromptTokens),
		zap.Int32("candidate_tokens", out.Usage.CandidateTokens),
	)
	if out.Text == "" {
		return nil, eris.New("gemini: empty response")
	}
	return out, nil
}
