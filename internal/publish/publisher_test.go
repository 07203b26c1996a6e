package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theladymaker/atelier/internal/model"
	"github.com/theladymaker/atelier/pkg/notion"
)

type mockNotion struct {
	mock.Mock
}

func (m *mockNotion) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

var creds = Credentials{Token: "secret", DatabaseID: "db-1"}

func fixedFactory(c notion.Client) ClientFactory {
	return func(string) notion.Client { return c }
}

func TestPublish_Success(t *testing.T) {
	mc := new(mockNotion)
	mc.On("CreatePage", mock.Anything, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == "db-1" && len(req.Properties) == 4
	})).Return(&notionapi.Page{ID: "p1"}, nil).Once()

	out, err := New(fixedFactory(mc)).Publish(context.Background(), "Silk Wrap Dress", "Sculpted.", "Gallerist", creds)
	require.NoError(t, err)
	assert.Equal(t, model.PublishOutcome{Persona: "Gallerist", Success: true, Message: "Success"}, out)
	mc.AssertExpectations(t)
}

func TestPublish_CredentialsMissing(t *testing.T) {
	for _, c := range []Credentials{{}, {Token: "t"}, {DatabaseID: "d"}} {
		mc := new(mockNotion)
		out, err := New(fixedFactory(mc)).Publish(context.Background(), "T", "post", "Gallerist", c)

		require.ErrorIs(t, err, ErrCredentialsMissing)
		assert.False(t, out.Success)
		assert.Equal(t, "Gallerist", out.Persona)
		mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
	}
}

func TestPublish_APIError(t *testing.T) {
	mc := new(mockNotion)
	mc.On("CreatePage", mock.Anything, mock.Anything).
		Return(nil, &notion.APIError{StatusCode: 400, Message: "bad token"}).Once()

	out, err := New(fixedFactory(mc)).Publish(context.Background(), "T", "post", "Gallerist", creds)

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, 400, pubErr.Code)
	assert.Equal(t, "bad token", pubErr.Message)
	assert.False(t, out.Success)
	assert.Equal(t, "Notion Error 400: bad token", out.Message)
}

func TestPublish_NetworkError(t *testing.T) {
	mc := new(mockNotion)
	mc.On("CreatePage", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	out, err := New(fixedFactory(mc)).Publish(context.Background(), "T", "post", "Gallerist", creds)

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, 0, pubErr.Code)
	assert.True(t, strings.HasPrefix(pubErr.Message, "System Error: "))
	assert.False(t, out.Success)
}

func TestPublish_EndToEnd(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"object":"page","id":"p1"}`))
	}))
	defer ts.Close()

	factory := func(token string) notion.Client {
		return notion.NewClient(token, notion.WithBaseURL(ts.URL), notion.WithHTTPClient(ts.Client()))
	}
	long := strings.Repeat("é", 2500)

	out, err := New(factory).Publish(context.Background(), "Silk Wrap Dress", long, "Oil Exec", creds)
	require.NoError(t, err)
	assert.True(t, out.Success)

	props := body["properties"].(map[string]any)
	post := props[PropGeneratedPost].(map[string]any)["rich_text"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	assert.Equal(t, MaxPostLength, utf8.RuneCountInString(post))
	persona := props[PropPersona].(map[string]any)["rich_text"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"]
	assert.Equal(t, "Oil Exec", persona)
	assert.Equal(t, DraftStatus, props[PropStatus].(map[string]any)["status"].(map[string]any)["name"])
}

func TestPublish_EndToEndErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad token"}`))
	}))
	defer ts.Close()

	factory := func(token string) notion.Client {
		return notion.NewClient(token, notion.WithBaseURL(ts.URL), notion.WithHTTPClient(ts.Client()))
	}
	_, err := New(factory).Publish(context.Background(), "T", "post", "Gallerist", creds)

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, 400, pubErr.Code)
	assert.Equal(t, "bad token", pubErr.Message)
}

func TestPublishAll_PartialFailure(t *testing.T) {
	mc := new(mockNotion)
	persona := func(name string) any {
		return mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
			p, ok := req.Properties[PropPersona].(notionapi.RichTextProperty)
			return ok && p.RichText[0].Text.Content == name
		})
	}
	mc.On("CreatePage", mock.Anything, persona("Oil Exec")).Return(&notionapi.Page{}, nil).Once()
	mc.On("CreatePage", mock.Anything, persona("Gallerist")).Return(nil, &notion.APIError{StatusCode: 500, Message: "boom"}).Once()
	mc.On("CreatePage", mock.Anything, persona("The Ladymaker Hybrid")).Return(&notionapi.Page{}, nil).Once()

	records := []model.CaptionRecord{
		{Persona: "Oil Exec", Post: "One"},
		{Persona: "Gallerist", Post: "Two"},
		{Persona: "", Post: "orphan"},
		{Persona: "Art Collector", Post: ""},
		{Persona: "The Ladymaker Hybrid", Post: "Four"},
	}
	res, err := New(fixedFactory(mc)).PublishAll(context.Background(), "T", records, creds)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Outcomes, 3)
	assert.False(t, res.Outcomes[1].Success)
	assert.Equal(t, "Notion Error 500: boom", res.Outcomes[1].Message)
	mc.AssertExpectations(t)
}

func TestPublishAll_CredentialsMissing(t *testing.T) {
	mc := new(mockNotion)
	res, err := New(fixedFactory(mc)).PublishAll(context.Background(), "T",
		[]model.CaptionRecord{{Persona: "A", Post: "B"}}, Credentials{Token: "t"})

	require.ErrorIs(t, err, ErrCredentialsMissing)
	assert.Zero(t, res.Attempted)
	mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
}

func TestPublisher_ReusesClientPerToken(t *testing.T) {
	var built atomic.Int32
	mc := new(mockNotion)
	mc.On("CreatePage", mock.Anything, mock.Anything).Return(&notionapi.Page{}, nil)
	p := New(func(string) notion.Client {
		built.Add(1)
		return mc
	})

	for range 3 {
		_, err := p.Publish(context.Background(), "T", "post", "A", creds)
		require.NoError(t, err)
	}
	_, err := p.Publish(context.Background(), "T", "post", "A", Credentials{Token: "other", DatabaseID: "db"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), built.Load())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "Soi", Truncate("Soirée", 3))
	assert.Equal(t, "Soiré", Truncate("Soirée", 5))
	assert.Equal(t, "Soirée", Truncate("Soirée", 6))
}
