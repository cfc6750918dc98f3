package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wordgrid/server/internal/config"
	"github.com/wordgrid/server/internal/performance"
	"github.com/wordgrid/server/internal/world"
)

// NewRouter wires every HTTP endpoint of the server.
func NewRouter(cfg *config.Config, w *world.World, ws *WebSocketHandlers, profiler *performance.Profiler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeadersMiddleware(cfg.Server.IsProduction()))
	r.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	admin := NewAdminHandlers(profiler, ws.GetHub())
	grid := NewGridHandlers(w)
	public := NewConfigHandlers(cfg)

	r.Get("/health", admin.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.RateLimit.HTTPPerMinute, time.Minute))
		if cfg.Server.WriteTimeout > 0 {
			r.Use(chimw.Timeout(cfg.Server.WriteTimeout))
		}

		r.Get("/chunks/{row}/{col}", grid.GetChunk)
		r.Get("/region", grid.GetRegion)
		r.Post("/validate", grid.Validate)
		r.Get("/stats", grid.GetStats)
		r.Get("/found-words", grid.GetFoundWords)
		r.Get("/config", public.GetConfig)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/performance", admin.GetPerformance)
			r.Delete("/performance", admin.ResetPerformance)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not found")
	})

	return r
}
