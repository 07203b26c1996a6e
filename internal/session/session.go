// Package session holds the per-user generate, edit and publish state.
package session

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/cache"
	"github.com/theladymaker/atelier/internal/campaign"
	"github.com/theladymaker/atelier/internal/model"
	"github.com/theladymaker/atelier/internal/product"
	"github.com/theladymaker/atelier/internal/publish"
)

// Session errors.
var (
	ErrUnauthenticated = eris.New("session: not authenticated")
	ErrAccessDenied    = eris.New("session: access denied")
	ErrNoCampaign      = eris.New("session: no campaign generated")
	ErrStaleEdit       = eris.New("session: edit targets a previous generation")
	ErrIndexOutOfRange = eris.New("session: caption index out of range")
	ErrAPIKeyMissing   = eris.New("session: api key missing")
	ErrURLRequired     = eris.New("session: product url is required")
)

// ImageSampler picks and downloads the images sent with a generation.
type ImageSampler interface {
	Sample(ctx context.Context, meta *model.ProductMetadata) []model.ImageAsset
}

// Publisher exports captions to the workspace.
type Publisher interface {
	Publish(ctx context.Context, title, caption, persona string, creds publish.Credentials) (model.PublishOutcome, error)
	PublishAll(ctx context.Context, title string, records []model.CaptionRecord, creds publish.Credentials) (model.BulkResult, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Fetcher   product.Source
	Sampler   ImageSampler
	Generator *campaign.Generator
	Publisher Publisher

	APIKey    string
	AccessKey string
	Notion    publish.Credentials
}

// GenerateRequest starts a generation. Description replaces the fetched
// description when the page had none.
type GenerateRequest struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Session is one user's workspace. Operations are serialized.
type Session struct {
	ID string

	deps       Deps
	cache      *cache.Cache
	fetcher    *product.Cached
	campaigner *campaign.Cached

	mu            sync.Mutex
	authenticated bool
	counter       int
	current       *model.GenerationSession
	edits         map[string]string

	// unix nanos, read without mu
	lastUsed atomic.Int64
}

// New creates a session with an empty cache.
func New(deps Deps) *Session {
	c := cache.New()
	s := &Session{
		ID:         uuid.NewString(),
		deps:       deps,
		cache:      c,
		fetcher:    product.NewCached(deps.Fetcher, c),
		campaigner: campaign.NewCached(deps.Generator, c),
		edits:      make(map[string]string),
	}
	s.touch()
	return s
}

// Authenticate unlocks the session when key matches the configured access
// key. An empty access key disables the check.
func (s *Session) Authenticate(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.deps.AccessKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.deps.AccessKey)) != 1 {
		zap.L().Warn("access denied", zap.String("session", s.ID))
		return ErrAccessDenied
	}
	s.authenticated = true
	return nil
}

// Authenticated reports whether operations are allowed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowed()
}

func (s *Session) allowed() bool {
	return s.authenticated || s.deps.AccessKey == ""
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// Generate fetches the product, samples its images and generates captions.
// The generation counter advances before fetching; a failed fetch leaves the
// previous generation in place.
func (s *Session) Generate(ctx context.Context, req GenerateRequest) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.allowed() {
		return nil, ErrUnauthenticated
	}
	if s.deps.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return nil, ErrURLRequired
	}

	s.counter++
	genID := s.counter
	log := zap.L().With(zap.String("session", s.ID), zap.Int("generation", genID))

	rec, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		log.Warn("product fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}

	record := *rec
	if manual := strings.TrimSpace(req.Description); manual != "" && record.NeedsManualInput() {
		record.Description = manual
	}

	images := s.deps.Sampler.Sample(ctx, record.Metadata)
	captions := s.campaigner.Generate(ctx, campaign.Request{
		Title:       record.Title,
		Description: record.Description,
		Images:      images,
		APIKey:      s.deps.APIKey,
	})

	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.SourceURL)
	}
	s.current = &model.GenerationSession{
		GenerationID: genID,
		Product:      record,
		ImageURLs:    urls,
		Captions:     captions,
	}
	s.edits = make(map[string]string)

	log.Info("campaign generated",
		zap.String("title", record.Title),
		zap.Int("images", len(images)),
		zap.Int("captions", len(captions)),
	)
	return s.view(), nil
}

// Edit replaces the text of the caption at index. The edit is rejected when
// generationID is not the current generation.
func (s *Session) Edit(index, generationID int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.allowed() {
		return ErrUnauthenticated
	}
	if s.current == nil {
		return ErrNoCampaign
	}
	if generationID != s.current.GenerationID {
		return ErrStaleEdit
	}
	if index < 0 || index >= len(s.current.Captions) {
		return ErrIndexOutOfRange
	}
	s.edits[model.EditKey(index, generationID)] = text
	return nil
}

// Caption returns the caption at index with any edit applied.
func (s *Session) Caption(index int) (model.CaptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.CaptionRecord{}, ErrNoCampaign
	}
	if index < 0 || index >= len(s.current.Captions) {
		return model.CaptionRecord{}, ErrIndexOutOfRange
	}
	return s.effective(index), nil
}

// Captions returns all captions in generation order with edits applied.
func (s *Session) Captions() []model.CaptionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveAll()
}

func (s *Session) effective(index int) model.CaptionRecord {
	c := s.current.Captions[index]
	if text, ok := s.edits[model.EditKey(index, s.current.GenerationID)]; ok {
		c.Post = text
	}
	return c
}

func (s *Session) effectiveAll() []model.CaptionRecord {
	if s.current == nil {
		return nil
	}
	out := make([]model.CaptionRecord, len(s.current.Captions))
	for i := range s.current.Captions {
		out[i] = s.effective(i)
	}
	return out
}

// PublishAll exports every caption of the current generation.
func (s *Session) PublishAll(ctx context.Context) (model.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.allowed() {
		return model.BulkResult{}, ErrUnauthenticated
	}
	if s.current == nil {
		return model.BulkResult{}, ErrNoCampaign
	}
	return s.deps.Publisher.PublishAll(ctx, s.current.Product.Title, s.effectiveAll(), s.deps.Notion)
}

// PublishOne exports the caption at index.
func (s *Session) PublishOne(ctx context.Context, index int) (model.PublishOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.allowed() {
		return model.PublishOutcome{}, ErrUnauthenticated
	}
	if s.current == nil {
		return model.PublishOutcome{}, ErrNoCampaign
	}
	if index < 0 || index >= len(s.current.Captions) {
		return model.PublishOutcome{}, ErrIndexOutOfRange
	}
	c := s.effective(index)
	return s.deps.Publisher.Publish(ctx, s.current.Product.Title, c.Post, c.Persona, s.deps.Notion)
}

// Reset clears the generation, edits, cache and authentication.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.cache.Clear()
	s.authenticated = false
	s.counter = 0
	s.current = nil
	s.edits = make(map[string]string)
	zap.L().Info("session reset", zap.String("session", s.ID))
}

// View returns a snapshot of the session.
func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// LastUsed is the time of the last operation.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}
