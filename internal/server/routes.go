package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing; the literal
// /assets/events pattern wins over /assets/{id}.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /providers", h.ListProviders)
	mux.HandleFunc("POST /assets", h.CreateAssets)
	mux.HandleFunc("GET /assets", h.ListAssets)
	mux.HandleFunc("GET /assets/events", h.Events)
	mux.HandleFunc("GET /assets/{id}", h.GetAsset)
	mux.HandleFunc("POST /assets/{id}/regenerate", h.RegenerateAsset)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
