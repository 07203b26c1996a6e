package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theladymaker/atelier/internal/config"
	"github.com/theladymaker/atelier/internal/imagery"
	"github.com/theladymaker/atelier/internal/model"
	"github.com/theladymaker/atelier/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Source: config.SourceConfig{
			AllowedDomain:    "theladymaker.com",
			UserAgent:        "Mozilla/5.0",
			FetchTimeoutSecs: 5,
			ImageTimeoutSecs: 3,
			ImageWidth:       600,
			MaxImages:        3,
		},
		Generation: config.GenerationConfig{Provider: "gemini", TimeoutSecs: 60},
		Gemini:     config.GeminiConfig{Key: "g-key", Model: "gemini-flash-latest"},
		Anthropic:  config.AnthropicConfig{Key: "a-key", Model: "claude-sonnet-4-5-20250929", MaxTokens: 2048},
		Notion:     config.NotionConfig{Token: "tok", DatabaseID: "db", BaseURL: "https://api.notion.com", TimeoutSecs: 5, RateLimit: 3},
		Server:     config.ServerConfig{Port: 8080},
	}
}

func TestInitPipeline(t *testing.T) {
	deps, err := initPipeline(testConfig(), "generate")
	require.NoError(t, err)

	assert.Equal(t, "g-key", deps.APIKey)
	assert.Equal(t, "tok", deps.Notion.Token)
	assert.Equal(t, "db", deps.Notion.DatabaseID)
	assert.NotNil(t, deps.Fetcher)
	assert.NotNil(t, deps.Generator)
	assert.NotNil(t, deps.Publisher)
	assert.IsType(t, &imagery.Sampler{}, deps.Sampler)
}

func TestInitPipeline_Anthropic(t *testing.T) {
	c := testConfig()
	c.Generation.Provider = "anthropic"

	deps, err := initPipeline(c, "publish")
	require.NoError(t, err)
	assert.Equal(t, "a-key", deps.APIKey)
}

func TestInitPipeline_ImagesDisabled(t *testing.T) {
	c := testConfig()
	c.Source.MaxImages = 0

	deps, err := initPipeline(c, "generate")
	require.NoError(t, err)
	assert.IsType(t, imagery.Disabled{}, deps.Sampler)
}

func TestInitPipeline_MissingKey(t *testing.T) {
	c := testConfig()
	c.Gemini.Key = ""

	_, err := initPipeline(c, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
}

func TestPrintView(t *testing.T) {
	v := &session.View{
		Product:    &model.ProductRecord{Title: "Silk Wrap Dress", Description: model.NoTextFound},
		NeedsInput: true,
		Captions: []session.CaptionView{
			{Index: 0, Persona: "Oil Exec", Post: "One"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printView(&buf, v, false))
	out := buf.String()
	assert.Contains(t, out, "SILK WRAP DRESS")
	assert.Contains(t, out, "--description")
	assert.Contains(t, out, "[0] Oil Exec\nOne")

	buf.Reset()
	require.NoError(t, printView(&buf, v, true))
	assert.Contains(t, buf.String(), `"persona": "Oil Exec"`)
}
