package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/product"
	"github.com/theladymaker/atelier/internal/publish"
	"github.com/theladymaker/atelier/internal/session"
)

// apiError is the JSON error envelope.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func newError(status int, code, message string) apiError {
	return apiError{Status: status, Code: code, Message: message}
}

func (e apiError) with(key string, value any) apiError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// classify maps domain errors onto HTTP statuses.
func classify(err error) apiError {
	var fetchErr *product.FetchError
	var pubErr *publish.PublishError

	switch {
	case errors.As(err, &fetchErr):
		switch fetchErr.Kind {
		case product.KindDomainRejected:
			return newError(http.StatusBadRequest, string(fetchErr.Kind), fetchErr.Error())
		case product.KindSite:
			return newError(http.StatusBadGateway, string(fetchErr.Kind), fetchErr.Error()).with("upstream_status", fetchErr.Status)
		default:
			return newError(http.StatusGatewayTimeout, string(fetchErr.Kind), fetchErr.Error())
		}
	case errors.As(err, &pubErr):
		return newError(http.StatusBadGateway, "publish_failed", pubErr.Error()).with("upstream_status", pubErr.Code)
	case errors.Is(err, publish.ErrCredentialsMissing):
		return newError(http.StatusPreconditionFailed, "credentials_missing", "Notion credentials are not configured")
	case errors.Is(err, session.ErrAPIKeyMissing):
		return newError(http.StatusPreconditionFailed, "api_key_missing", "API key missing")
	case errors.Is(err, session.ErrUnauthenticated):
		return newError(http.StatusUnauthorized, "unauthenticated", "session is locked")
	case errors.Is(err, session.ErrAccessDenied):
		return newError(http.StatusUnauthorized, "access_denied", "access denied")
	case errors.Is(err, session.ErrStaleEdit):
		return newError(http.StatusConflict, "stale_edit", "caption belongs to a previous generation")
	case errors.Is(err, session.ErrNoCampaign):
		return newError(http.StatusConflict, "no_campaign", "generate a campaign first")
	case errors.Is(err, session.ErrIndexOutOfRange):
		return newError(http.StatusNotFound, "caption_not_found", "caption index out of range")
	case errors.Is(err, session.ErrURLRequired):
		return newError(http.StatusBadRequest, "url_required", "paste a URL first")
	case errors.Is(err, session.ErrNotFound):
		return newError(http.StatusNotFound, "session_not_found", "session not found")
	default:
		return newError(http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, e apiError) {
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
	}
	if id := chimw.GetReqID(ctx); id != "" {
		payload["request_id"] = id
	}
	for k, v := range e.Details {
		payload[k] = v
	}
	writeJSON(w, e.Status, payload)
}

func writeErr(ctx context.Context, w http.ResponseWriter, err error) {
	e := classify(err)
	if e.Status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeError(ctx, w, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}
