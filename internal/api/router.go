package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/aichecker/internal/api/middleware"
	"github.com/kiranshivaraju/aichecker/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	AllowedOrigins []string

	HealthHandler    http.HandlerFunc
	ConfigHandler    http.HandlerFunc
	AnalyzeHandler   http.HandlerFunc
	AnalyzeV2Handler http.HandlerFunc
	StatusHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/config", orNotImplemented(deps.ConfigHandler))

	r.Post("/api/mcp/analyze", orNotImplemented(deps.AnalyzeHandler))
	r.Post("/api/mcp/analyze-v2", orNotImplemented(deps.AnalyzeV2Handler))
	r.Get("/api/mcp/status/{jobID}", orNotImplemented(deps.StatusHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
