package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/campaign"
	"github.com/theladymaker/atelier/internal/config"
	"github.com/theladymaker/atelier/internal/imagery"
	"github.com/theladymaker/atelier/internal/product"
	"github.com/theladymaker/atelier/internal/publish"
	"github.com/theladymaker/atelier/internal/session"
	"github.com/theladymaker/atelier/pkg/notion"
)

// initPipeline validates the config for mode and builds the collaborators
// shared by every session.
func initPipeline(c *config.Config, mode string) (session.Deps, error) {
	if err := c.Validate(mode); err != nil {
		return session.Deps{}, err
	}

	var modelName string
	var maxTokens int64
	switch c.Generation.Provider {
	case "anthropic":
		modelName, maxTokens = c.Anthropic.Model, c.Anthropic.MaxTokens
	default:
		modelName = c.Gemini.Model
	}
	factory, err := campaign.NewFactory(c.Generation.Provider, modelName, maxTokens, c.Generation.Timeout())
	if err != nil {
		return session.Deps{}, eris.Wrap(err, "init pipeline")
	}

	fetcher := product.NewFetcher(product.Options{
		AllowedDomain: c.Source.AllowedDomain,
		UserAgent:     c.Source.UserAgent,
		Timeout:       c.Source.FetchTimeout(),
	})
	var sampler session.ImageSampler = imagery.Disabled{}
	if c.Source.MaxImages > 0 {
		sampler = imagery.NewSampler(imagery.Options{
			Width:     c.Source.ImageWidth,
			Max:       c.Source.MaxImages,
			Timeout:   c.Source.ImageTimeout(),
			UserAgent: c.Source.UserAgent,
		})
	}
	publisher := publish.New(func(token string) notion.Client {
		return notion.NewClient(token,
			notion.WithBaseURL(c.Notion.BaseURL),
			notion.WithTimeout(c.Notion.Timeout()),
			notion.WithRateLimit(c.Notion.RateLimit),
		)
	})

	zap.L().Debug("pipeline initialized",
		zap.String("mode", mode),
		zap.String("provider", c.Generation.Provider),
		zap.String("model", modelName),
		zap.Duration("model_timeout", c.Generation.Timeout()),
		zap.String("domain", c.Source.AllowedDomain),
	)

	return session.Deps{
		Fetcher:   fetcher,
		Sampler:   sampler,
		Generator: campaign.NewGenerator(factory),
		Publisher: publisher,
		APIKey:    c.APIKey(),
		Notion: publish.Credentials{
			Token:      c.Notion.Token,
			DatabaseID: c.Notion.DatabaseID,
		},
	}, nil
}
