package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/performance"
)

// AdminHandlers handles operational endpoints
type AdminHandlers struct {
	profiler *performance.Profiler
	hub      *WebSocketHub
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(profiler *performance.Profiler, hub *WebSocketHub) *AdminHandlers {
	return &AdminHandlers{
		profiler: profiler,
		hub:      hub,
	}
}

// Health handles GET /health
func (h *AdminHandlers) Health(w http.ResponseWriter, r *http.Request) {
	sessions := 0
	if h.hub != nil {
		sessions = h.hub.Count()
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "wordgrid-server",
		"sessions": sessions,
	})
}

// GetPerformance handles GET /api/admin/performance
func (h *AdminHandlers) GetPerformance(w http.ResponseWriter, r *http.Request) {
	if h.profiler == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Profiler not configured")
		return
	}
	report, err := h.profiler.JSONReport()
	if err != nil {
		log.Error().Err(err).Msg("failed to build performance report")
		respondWithError(w, http.StatusInternalServerError, "Failed to build performance report")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		log.Warn().Err(err).Msg("failed to write performance report")
	}
}

// ResetPerformance handles DELETE /api/admin/performance
func (h *AdminHandlers) ResetPerformance(w http.ResponseWriter, r *http.Request) {
	if h.profiler == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Profiler not configured")
		return
	}
	h.profiler.Reset()
	log.Info().Msg("Admin: performance metrics reset")
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
