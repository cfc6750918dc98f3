package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wordgrid/server/internal/compression"
	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/streaming"
	"github.com/wordgrid/server/internal/world"
)

// GetChunkRequest is the data of a get_chunk message
type GetChunkRequest struct {
	ChunkRow *int `json:"chunkRow" validate:"required"`
	ChunkCol *int `json:"chunkCol" validate:"required"`
	Compress bool `json:"compress"`
}

// GetRegionRequest is the data of a get_region message
type GetRegionRequest struct {
	StartRow *int `json:"startRow" validate:"required"`
	StartCol *int `json:"startCol" validate:"required"`
	EndRow   *int `json:"endRow" validate:"required"`
	EndCol   *int `json:"endCol" validate:"required"`
}

// ValidateRequest is the data of a validate message and the body of POST /api/validate.
// An empty selection is a miss, not an error. At most 4096 cells are accepted.
type ValidateRequest struct {
	Coords []gridmap.Position `json:"coords" validate:"max=4096"`
}

// SubscribeViewportRequest is the data of a subscribe_viewport message
type SubscribeViewportRequest struct {
	StartRow *int `json:"startRow" validate:"required"`
	StartCol *int `json:"startCol" validate:"required"`
	EndRow   *int `json:"endRow" validate:"required"`
	EndCol   *int `json:"endCol" validate:"required"`
}

// UpdateViewportRequest is the data of an update_viewport message
type UpdateViewportRequest struct {
	SubscriptionID string `json:"subscriptionId" validate:"required,uuid"`
	StartRow       *int   `json:"startRow" validate:"required"`
	StartCol       *int   `json:"startCol" validate:"required"`
	EndRow         *int   `json:"endRow" validate:"required"`
	EndCol         *int   `json:"endCol" validate:"required"`
}

// ChunkDataPayload is the data of a chunk_data response. Exactly one of
// Rows and Compressed is set.
type ChunkDataPayload struct {
	ChunkRow   int                          `json:"chunkRow"`
	ChunkCol   int                          `json:"chunkCol"`
	ChunkSize  int                          `json:"chunkSize"`
	Rows       []string                     `json:"rows,omitempty"`
	Compressed *compression.CompressedChunk `json:"compressed,omitempty"`
}

// RegionDataPayload is the data of a region_data response
type RegionDataPayload struct {
	StartRow int      `json:"startRow"`
	StartCol int      `json:"startCol"`
	EndRow   int      `json:"endRow"`
	EndCol   int      `json:"endCol"`
	Rows     []string `json:"rows"`
}

// ValidationResultPayload is the data of a validation_result response
type ValidationResultPayload struct {
	Found  bool               `json:"found"`
	ID     string             `json:"id,omitempty"`
	Word   string             `json:"word,omitempty"`
	Coords []gridmap.Position `json:"coords"`
}

// FoundWordsPayload is the data of a found_words response
type FoundWordsPayload struct {
	Words []world.FoundWord `json:"words"`
}

// ViewportAckPayload is the data of a viewport_ack response
type ViewportAckPayload struct {
	SubscriptionID string               `json:"subscriptionId"`
	Chunks         []gridmap.ChunkCoord `json:"chunks"`
}

func chunkPayload(view world.ChunkView, compress bool) (ChunkDataPayload, error) {
	payload := ChunkDataPayload{
		ChunkRow:  view.Coord.Row,
		ChunkCol:  view.Coord.Col,
		ChunkSize: view.Size,
	}
	if !compress {
		payload.Rows = view.Rows
		return payload, nil
	}
	compressed, err := compression.CompressRows(view.Rows)
	if err != nil {
		return ChunkDataPayload{}, err
	}
	payload.Compressed = compressed
	return payload, nil
}

func regionPayload(view world.RegionView) RegionDataPayload {
	return RegionDataPayload{
		StartRow: view.Start.Row,
		StartCol: view.Start.Col,
		EndRow:   view.End.Row,
		EndCol:   view.End.Col,
		Rows:     view.Rows,
	}
}

func validationPayload(result world.ValidationResult) ValidationResultPayload {
	coords := result.Coords
	if coords == nil {
		coords = []gridmap.Position{}
	}
	return ValidationResultPayload{
		Found:  result.Found,
		ID:     result.ID,
		Word:   result.Word,
		Coords: coords,
	}
}

func foundWordsPayload(words []world.FoundWord) FoundWordsPayload {
	if words == nil {
		words = []world.FoundWord{}
	}
	return FoundWordsPayload{Words: words}
}

func viewportOf(startRow, startCol, endRow, endCol *int) streaming.Viewport {
	return streaming.Viewport{
		StartRow: *startRow,
		StartCol: *startCol,
		EndRow:   *endRow,
		EndCol:   *endCol,
	}
}

// validationMessage flattens validator errors into one line
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		messages = append(messages, fmt.Sprintf("%s: %s", fe.Field(), getValidationMessage(fe)))
	}
	return strings.Join(messages, "; ")
}

func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must contain at most %s items", fe.Param())
	case "uuid":
		return "must be a valid subscription id"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
