// Package publish exports captions to the Notion campaign database.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/model"
	"github.com/theladymaker/atelier/pkg/notion"
)

// MaxPostLength is the longest caption stored in a single rich_text property.
const MaxPostLength = 2000

// DraftStatus is the status assigned to every exported caption.
const DraftStatus = "Draft"

// Database property names.
const (
	PropProductName   = "Product Name"
	PropPersona       = "Persona"
	PropGeneratedPost = "Generated Post"
	PropStatus        = "Status"
)

// ErrCredentialsMissing is returned when the token or database id is empty.
var ErrCredentialsMissing = eris.New("publish: notion credentials missing")

// PublishError is a failed create-page call. Code is the HTTP status, or 0
// when the request never got an answer.
type PublishError struct {
	Code    int
	Message string
}

func (e *PublishError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("Notion Error %d: %s", e.Code, e.Message)
}

// Credentials identify the workspace integration and destination database.
type Credentials struct {
	Token      string
	DatabaseID string
}

// Complete reports whether both values are present.
func (c Credentials) Complete() bool {
	return c.Token != "" && c.DatabaseID != ""
}

// ClientFactory builds a Notion client for an integration token.
type ClientFactory func(token string) notion.Client

// Publisher creates one database page per caption.
type Publisher struct {
	newClient ClientFactory

	mu      sync.Mutex
	clients map[string]notion.Client
}

// New creates a Publisher. Clients are built lazily and reused per token so
// their rate limiters are shared.
func New(factory ClientFactory) *Publisher {
	return &Publisher{newClient: factory, clients: make(map[string]notion.Client)}
}

func (p *Publisher) client(token string) notion.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[token]
	if !ok {
		c = p.newClient(token)
		p.clients[token] = c
	}
	return c
}

// Publish exports one caption. The outcome is always populated; the error is
// ErrCredentialsMissing or a *PublishError when the outcome is a failure.
func (p *Publisher) Publish(ctx context.Context, title, caption, persona string, creds Credentials) (model.PublishOutcome, error) {
	outcome := model.PublishOutcome{Persona: persona}
	if !creds.Complete() {
		outcome.Message = ErrCredentialsMissing.Error()
		return outcome, ErrCredentialsMissing
	}

	log := zap.L().With(zap.String("persona", persona), zap.String("title", title))

	_, err := p.client(creds.Token).CreatePage(ctx, PageRequest(creds.DatabaseID, title, caption, persona))
	if err != nil {
		pubErr := toPublishError(err)
		log.Warn("publish failed", zap.Int("code", pubErr.Code), zap.String("message", pubErr.Message))
		outcome.Message = pubErr.Error()
		return outcome, pubErr
	}

	log.Info("caption published")
	outcome.Success = true
	outcome.Message = "Success"
	return outcome, nil
}

// PublishAll exports every record with a persona and a post, in order,
// continuing past failures.
func (p *Publisher) PublishAll(ctx context.Context, title string, records []model.CaptionRecord, creds Credentials) (model.BulkResult, error) {
	var result model.BulkResult
	if !creds.Complete() {
		return result, ErrCredentialsMissing
	}

	for _, r := range records {
		if r.Persona == "" || r.Post == "" {
			continue
		}
		result.Attempted++
		outcome, _ := p.Publish(ctx, title, r.Post, r.Persona, creds)
		if outcome.Success {
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	zap.L().Info("bulk publish complete",
		zap.String("title", title),
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
	)
	return result, nil
}

// PageRequest maps a caption onto the campaign database schema.
func PageRequest(dbID, title, caption, persona string) *notionapi.PageCreateRequest {
	return &notionapi.PageCreateRequest{
		Parent: notion.DatabaseParent(dbID),
		Properties: notionapi.Properties{
			PropProductName:   notion.Title(title),
			PropPersona:       notion.RichText(persona),
			PropGeneratedPost: notion.RichText(Truncate(caption, MaxPostLength)),
			PropStatus:        notion.Status(DraftStatus),
		},
	}
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func toPublishError(err error) *PublishError {
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) {
		return &PublishError{Code: apiErr.StatusCode, Message: apiErr.Message}
	}
	return &PublishError{Message: "System Error: " + err.Error()}
}
