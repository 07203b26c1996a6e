// Package campaign turns a product into persona-targeted captions.
package campaign

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/cache"
	"github.com/theladymaker/atelier/internal/model"
)

// Image is an image attached to a generation request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Model is a generative model that answers a text prompt with optional images.
type Model interface {
	Generate(ctx context.Context, prompt string, images []Image) (string, error)
}

// ModelFactory builds a Model bound to a credential.
type ModelFactory func(ctx context.Context, apiKey string) (Model, error)

// Request is the input of one generation.
type Request struct {
	Title       string
	Description string
	Images      []model.ImageAsset
	APIKey      string
}

// Campaigner produces captions. Implementations never fail: errors are
// reported as a single model.ErrorPersona record.
type Campaigner interface {
	Generate(ctx context.Context, req Request) []model.CaptionRecord
}

// Generator composes the prompt, calls the model and parses its answer.
type Generator struct {
	newModel ModelFactory
	catalog  *Catalog
}

// NewGenerator creates a Generator using the embedded persona catalog.
func NewGenerator(factory ModelFactory) *Generator {
	return &Generator{newModel: factory, catalog: DefaultCatalog}
}

// WithCatalog returns a copy of g using a different persona catalog.
func (g *Generator) WithCatalog(c *Catalog) *Generator {
	return &Generator{newModel: g.newModel, catalog: c}
}

// Generate returns the model's captions in output order, or a single
// model.ErrorPersona record describing what went wrong.
func (g *Generator) Generate(ctx context.Context, req Request) []model.CaptionRecord {
	records, err := g.TryGenerate(ctx, req)
	if err != nil {
		return degrade(req, err)
	}
	return records
}

// TryGenerate is Generate without the degrade-to-record policy.
func (g *Generator) TryGenerate(ctx context.Context, req Request) ([]model.CaptionRecord, error) {
	if g.newModel == nil {
		return nil, eris.New("campaign: no model configured")
	}
	m, err := g.newModel(ctx, req.APIKey)
	if err != nil {
		return nil, eris.Wrap(err, "campaign: create model")
	}

	prompt := g.catalog.BuildPrompt(req.Title, req.Description, len(req.Images))
	images := make([]Image, 0, len(req.Images))
	for _, a := range req.Images {
		images = append(images, Image{Data: a.Data, MIMEType: a.MIMEType})
	}

	zap.L().Info("generating campaign",
		zap.String("title", req.Title),
		zap.Int("images", len(images)),
	)

	text, err := m.Generate(ctx, prompt, images)
	if err != nil {
		return nil, eris.Wrap(err, "campaign: generate")
	}

	return ParseCaptions(text)
}

func degrade(req Request, err error) []model.CaptionRecord {
	zap.L().Warn("campaign generation failed",
		zap.String("title", req.Title),
		zap.Error(err),
	)
	return model.ErrorCaption(err.Error())
}

// Cached memoizes successful generations in a session cache. Failures are
// not stored, so repeating the request retries the model.
type Cached struct {
	gen   *Generator
	cache *cache.Cache
}

// NewCached wraps g with the session cache c.
func NewCached(g *Generator, c *cache.Cache) *Cached {
	return &Cached{gen: g, cache: c}
}

// Generate returns the cached captions for identical inputs or generates them.
func (c *Cached) Generate(ctx context.Context, req Request) []model.CaptionRecord {
	key, err := RequestKey(req)
	if err != nil {
		return degrade(req, err)
	}
	v, err := c.cache.Do(key, func() (any, error) {
		return c.gen.TryGenerate(ctx, req)
	})
	if err != nil {
		return degrade(req, err)
	}
	return v.([]model.CaptionRecord)
}

// RequestKey is the cache key of a request. Images are identified by a digest
// of their content.
func RequestKey(req Request) (string, error) {
	digests := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		sum := sha256.Sum256(img.Data)
		digests = append(digests, hex.EncodeToString(sum[:]))
	}
	return cache.Key("campaign.Generate", req.Title, req.Description, digests, req.APIKey)
}
