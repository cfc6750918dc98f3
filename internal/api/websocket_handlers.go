package api

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/streaming"
	"github.com/wordgrid/server/internal/world"
)

// decode unmarshals msg.Data into req and validates it. On failure the error
// has already been sent to the session.
func (h *WebSocketHandlers) decode(conn *WebSocketConnection, msg *WebSocketMessage, req any) bool {
	data := msg.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, req); err != nil {
		conn.sendError(msg.ID, "Invalid "+msg.Type+" payload", CodeInvalidMessageFormat)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		conn.sendError(msg.ID, validationMessage(err), CodeValidationError)
		return false
	}
	return true
}

func (h *WebSocketHandlers) handleGetChunk(conn *WebSocketConnection, msg *WebSocketMessage) {
	var req GetChunkRequest
	if !h.decode(conn, msg, &req) {
		return
	}

	coord := gridmap.ChunkCoord{Row: *req.ChunkRow, Col: *req.ChunkCol}
	h.sendChunk(conn, msg.ID, coord, req.Compress)
}

func (h *WebSocketHandlers) sendChunk(conn *WebSocketConnection, id string, coord gridmap.ChunkCoord, compress bool) {
	payload, err := chunkPayload(h.world.GetChunk(coord), compress)
	if err != nil {
		log.Error().Err(err).Int("chunk_row", coord.Row).Int("chunk_col", coord.Col).Msg("failed to compress chunk")
		conn.sendError(id, "Failed to compress chunk", CodeInternalError)
		return
	}
	conn.sendMessage("chunk_data", id, payload)
}

func (h *WebSocketHandlers) handleGetRegion(conn *WebSocketConnection, msg *WebSocketMessage) {
	var req GetRegionRequest
	if !h.decode(conn, msg, &req) {
		return
	}

	view, err := h.world.GetRegion(
		gridmap.Position{Row: *req.StartRow, Col: *req.StartCol},
		gridmap.Position{Row: *req.EndRow, Col: *req.EndCol},
	)
	if errors.Is(err, world.ErrRegionTooLarge) {
		conn.sendError(msg.ID, err.Error(), CodeRegionTooLarge)
		return
	}
	if err != nil {
		conn.sendError(msg.ID, "Failed to read region", CodeInternalError)
		return
	}
	conn.sendMessage("region_data", msg.ID, regionPayload(view))
}

func (h *WebSocketHandlers) handleValidate(conn *WebSocketConnection, msg *WebSocketMessage) {
	var req ValidateRequest
	if !h.decode(conn, msg, &req) {
		return
	}

	result := h.world.Validate(req.Coords)
	conn.sendMessage("validation_result", msg.ID, validationPayload(result))
}

func (h *WebSocketHandlers) sendStats(conn *WebSocketConnection, id string) {
	conn.sendMessage("stats", id, h.world.Stats())
}

func (h *WebSocketHandlers) sendFoundWords(conn *WebSocketConnection, id string) {
	conn.sendMessage("found_words", id, foundWordsPayload(h.world.FoundWords()))
}

func (h *WebSocketHandlers) handleSubscribeViewport(conn *WebSocketConnection, msg *WebSocketMessage) {
	if h.streams == nil {
		conn.sendError(msg.ID, "Streaming manager unavailable", CodeInternalError)
		return
	}

	var req SubscribeViewportRequest
	if !h.decode(conn, msg, &req) {
		return
	}

	op := h.profiler.Start("viewport_subscribe")
	plan, err := h.streams.Subscribe(conn.sessionID, viewportOf(req.StartRow, req.StartCol, req.EndRow, req.EndCol))
	op.End()
	if errors.Is(err, streaming.ErrViewportTooLarge) {
		conn.sendError(msg.ID, err.Error(), CodeRegionTooLarge)
		return
	}
	if err != nil {
		conn.sendError(msg.ID, "Failed to register viewport", CodeInternalError)
		return
	}

	conn.sendMessage("viewport_ack", msg.ID, ViewportAckPayload{
		SubscriptionID: plan.SubscriptionID,
		Chunks:         plan.Chunks,
	})
	for _, coord := range plan.Chunks {
		h.sendChunk(conn, "", coord, false)
	}
}

func (h *WebSocketHandlers) handleUpdateViewport(conn *WebSocketConnection, msg *WebSocketMessage) {
	if h.streams == nil {
		conn.sendError(msg.ID, "Streaming manager unavailable", CodeInternalError)
		return
	}

	var req UpdateViewportRequest
	if !h.decode(conn, msg, &req) {
		return
	}

	op := h.profiler.Start("viewport_update")
	delta, err := h.streams.Update(conn.sessionID, req.SubscriptionID, viewportOf(req.StartRow, req.StartCol, req.EndRow, req.EndCol))
	op.End()
	switch {
	case errors.Is(err, streaming.ErrSubscriptionNotFound):
		conn.sendError(msg.ID, err.Error(), CodeSubscriptionNotFound)
		return
	case errors.Is(err, streaming.ErrViewportTooLarge):
		conn.sendError(msg.ID, err.Error(), CodeRegionTooLarge)
		return
	case err != nil:
		conn.sendError(msg.ID, "Failed to update viewport", CodeInternalError)
		return
	}

	conn.sendMessage("viewport_delta", msg.ID, delta)
	for _, coord := range delta.Added {
		h.sendChunk(conn, "", coord, false)
	}
}
