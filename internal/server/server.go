// Package server exposes sessions over a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/theladymaker/atelier/internal/session"
)

// Config holds runtime options for the API server.
type Config struct {
	Address        string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// New constructs the HTTP server with its middleware stack.
func New(cfg Config, sessions *session.Manager) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           NewRouter(cfg, sessions),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// NewRouter builds the API routes.
func NewRouter(cfg Config, sessions *session.Manager) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(requestLogger)
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{chimw.RequestIDHeader},
		MaxAge:         300,
	}))
	router.Use(chimw.Timeout(timeout))

	h := &handlers{sessions: sessions}

	router.Get("/health", h.health)
	router.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Post("/auth", h.authenticate)
			r.Post("/generate", h.generate)
			r.Post("/reset", h.reset)
			r.Post("/publish", h.publishAll)
			r.Put("/captions/{index}", h.editCaption)
			r.Post("/captions/{index}/publish", h.publishOne)
		})
	})

	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
