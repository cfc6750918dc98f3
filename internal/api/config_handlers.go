package api

import (
	"net/http"

	"github.com/wordgrid/server/internal/config"
	"github.com/wordgrid/server/internal/streaming"
)

// PublicConfig is the grid configuration clients need to lay out a viewport
type PublicConfig struct {
	ChunkSize         int   `json:"chunkSize"`
	MinWordsPerChunk  int   `json:"minWordsPerChunk"`
	MaxWordsPerChunk  int   `json:"maxWordsPerChunk"`
	MaxRegionCells    int64 `json:"maxRegionCells"`
	MaxViewportChunks int   `json:"maxViewportChunks"`
}

// ConfigHandlers handles configuration-related HTTP requests
type ConfigHandlers struct {
	public PublicConfig
}

// NewConfigHandlers creates a new instance of ConfigHandlers
func NewConfigHandlers(cfg *config.Config) *ConfigHandlers {
	return &ConfigHandlers{
		public: PublicConfig{
			ChunkSize:         cfg.Grid.ChunkSize,
			MinWordsPerChunk:  cfg.Grid.MinWords,
			MaxWordsPerChunk:  cfg.Grid.MaxWords,
			MaxRegionCells:    cfg.Grid.MaxRegionCells,
			MaxViewportChunks: streaming.DefaultMaxChunks,
		},
	}
}

// GetConfig handles GET /api/config requests
func (h *ConfigHandlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
	respondWithJSON(w, http.StatusOK, h.public)
}
