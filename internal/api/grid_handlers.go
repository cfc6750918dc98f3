package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/world"
)

// GridHandlers serves the REST mirror of the session protocol.
type GridHandlers struct {
	world    *world.World
	validate *validator.Validate
}

// NewGridHandlers creates a new instance of GridHandlers.
func NewGridHandlers(w *world.World) *GridHandlers {
	return &GridHandlers{
		world:    w,
		validate: validator.New(),
	}
}

// GetChunk handles GET /api/chunks/{row}/{col}?compress=true
func (h *GridHandlers) GetChunk(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid chunk row")
		return
	}
	col, err := strconv.Atoi(chi.URLParam(r, "col"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid chunk column")
		return
	}
	compress := r.URL.Query().Get("compress") == "true"

	payload, err := chunkPayload(h.world.GetChunk(gridmap.ChunkCoord{Row: row, Col: col}), compress)
	if err != nil {
		log.Error().Err(err).Int("chunk_row", row).Int("chunk_col", col).Msg("failed to compress chunk")
		respondWithError(w, http.StatusInternalServerError, "Failed to compress chunk")
		return
	}
	respondWithJSON(w, http.StatusOK, payload)
}

// GetRegion handles GET /api/region?startRow=&startCol=&endRow=&endCol=
func (h *GridHandlers) GetRegion(w http.ResponseWriter, r *http.Request) {
	var bounds [4]int
	for i, name := range []string{"startRow", "startCol", "endRow", "endCol"} {
		value, err := strconv.Atoi(r.URL.Query().Get(name))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
			return
		}
		bounds[i] = value
	}

	view, err := h.world.GetRegion(
		gridmap.Position{Row: bounds[0], Col: bounds[1]},
		gridmap.Position{Row: bounds[2], Col: bounds[3]},
	)
	if errors.Is(err, world.ErrRegionTooLarge) {
		respondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to read region")
		return
	}
	respondWithJSON(w, http.StatusOK, regionPayload(view))
}

// Validate handles POST /api/validate
func (h *GridHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result := h.world.Validate(req.Coords)
	respondWithJSON(w, http.StatusOK, validationPayload(result))
}

// GetStats handles GET /api/stats
func (h *GridHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.world.Stats())
}

// GetFoundWords handles GET /api/found-words
func (h *GridHandlers) GetFoundWords(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, foundWordsPayload(h.world.FoundWords()))
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
