package campaign

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/theladymaker/atelier/pkg/anthropic"
	"github.com/theladymaker/atelier/pkg/gemini"
)

// GeminiFactory builds Gemini-backed models for the given model name.
func GeminiFactory(modelName string, opts ...gemini.Option) ModelFactory {
	return func(ctx context.Context, apiKey string) (Model, error) {
		c, err := gemini.NewClient(ctx, apiKey, opts...)
		if err != nil {
			return nil, err
		}
		return &geminiModel{client: c, model: modelName}, nil
	}
}

type geminiModel struct {
	client gemini.Client
	model  string
}

func (m *geminiModel) Generate(ctx context.Context, prompt string, images []Image) (string, error) {
	inline := make([]gemini.InlineImage, 0, len(images))
	for _, img := range images {
		inline = append(inline, gemini.InlineImage{Data: img.Data, MIMEType: img.MIMEType})
	}
	resp, err := m.client.GenerateContent(ctx, gemini.Request{
		Model:            m.model,
		Prompt:           prompt,
		Images:           inline,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// AnthropicFactory builds Claude-backed models for the given model name.
func AnthropicFactory(modelName string, maxTokens int64, opts ...anthropic.Option) ModelFactory {
	return func(_ context.Context, apiKey string) (Model, error) {
		c, err := anthropic.NewClient(apiKey, opts...)
		if err != nil {
			return nil, err
		}
		return &anthropicModel{client: c, model: modelName, maxTokens: maxTokens}, nil
	}
}

type anthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func (m *anthropicModel) Generate(ctx context.Context, prompt string, images []Image) (string, error) {
	attached := make([]anthropic.Image, 0, len(images))
	for _, img := range images {
		attached = append(attached, anthropic.Image{Data: img.Data, MediaType: img.MIMEType})
	}
	resp, err := m.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt, Images: attached}},
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", eris.New("anthropic: empty response")
	}
	return text, nil
}

// NewFactory selects the model factory for a provider name. A positive
// timeout bounds every model call.
func NewFactory(provider, modelName string, maxTokens int64, timeout time.Duration) (ModelFactory, error) {
	switch provider {
	case "gemini":
		var opts []gemini.Option
		if timeout > 0 {
			opts = append(opts, gemini.WithTimeout(timeout))
		}
		return GeminiFactory(modelName, opts...), nil
	case "anthropic":
		var opts []anthropic.Option
		if timeout > 0 {
			opts = append(opts, anthropic.WithTimeout(timeout))
		}
		return AnthropicFactory(modelName, maxTokens, opts...), nil
	default:
		return nil, eris.Errorf("campaign: unknown provider %q", provider)
	}
}
