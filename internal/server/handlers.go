package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/theladymaker/atelier/internal/publish"
	"github.com/theladymaker/atelier/internal/session"
)

const maxRequestBytes = 1 << 20

type handlers struct {
	sessions *session.Manager
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeErr(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) authenticate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Authenticate(req.Key); err != nil {
		writeErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req session.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := s.Generate(r.Context(), req)
	if err != nil {
		writeErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) editCaption(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := captionIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		GenerationID int    `json:"generation_id"`
		Post         string `json:"post"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Edit(index, req.GenerationID, req.Post); err != nil {
		writeErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *handlers) publishAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := s.PublishAll(r.Context())
	if err != nil {
		writeErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) publishOne(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := captionIndex(w, r)
	if !ok {
		return
	}
	outcome, err := s.PublishOne(r.Context(), index)
	var pubErr *publish.PublishError
	if errors.As(err, &pubErr) {
		writeError(r.Context(), w, classify(err).with("outcome", outcome))
		return
	}
	if err != nil {
		writeErr(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	writeJSON(w, http.StatusOK, s.View())
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(r.Context(), w, err)
		return nil, false
	}
	return s, true
}

func captionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(r.Context(), w, newError(http.StatusBadRequest, "invalid_index", "caption index must be an integer"))
		return 0, false
	}
	return index, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, newError(http.StatusBadRequest, "invalid_body", "request body must be JSON"))
		return false
	}
	return true
}
