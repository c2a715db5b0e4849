package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/bridge"
	"github.com/allyhumai/bridge/internal/models"
	"github.com/allyhumai/bridge/internal/services/extractor"
)

// Profile pages are large but bounded; anything past this is not a
// profile capture.
const maxExtractBody = 4 << 20

// BridgeHandler exposes the coordinator's inbound events over HTTP for
// the browser extension.
type BridgeHandler struct {
	coordinator *bridge.Coordinator
	extractor   *extractor.Service
	logger      arbor.ILogger
}

// NewBridgeHandler creates a new bridge handler
func NewBridgeHandler(coordinator *bridge.Coordinator, extractorService *extractor.Service, logger arbor.ILogger) *BridgeHandler {
	return &BridgeHandler{
		coordinator: coordinator,
		extractor:   extractorService,
		logger:      logger,
	}
}

// SessionUpdateHandler handles POST /api/session with captured credentials.
func (h *BridgeHandler) SessionUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.SessionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse session update")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp := h.coordinator.SessionUpdate(r.Context(), &req)
	statusCode := http.StatusOK
	if !resp.OK {
		statusCode = http.StatusBadRequest
	}
	WriteJSON(w, statusCode, resp)
}

// LogoutHandler handles POST /api/session/logout.
func (h *BridgeHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.coordinator.Logout(r.Context())
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// PingHandler handles GET /api/ping. Always answers from the durable
// store so extensions see cross-restart truth.
func (h *BridgeHandler) PingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, h.coordinator.Ping(r.Context()))
}

// SubmitHandler handles POST /api/candidates with an extracted record.
func (h *BridgeHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var candidate models.CandidateRecord
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse candidate record")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp := h.coordinator.CandidateSubmitted(r.Context(), &candidate)
	statusCode := http.StatusOK
	if !resp.OK {
		statusCode = http.StatusBadRequest
	}
	WriteJSON(w, statusCode, resp)
}

// ExtractHandler handles POST /api/candidates/extract: raw profile page
// HTML in, extraction plus the normal submission flow.
func (h *BridgeHandler) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxExtractBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) == 0 {
		WriteError(w, http.StatusBadRequest, "Empty request body")
		return
	}

	candidate, err := h.extractor.Extract(string(body))
	if err != nil {
		if errors.Is(err, extractor.ErrNoProfile) {
			WriteJSON(w, http.StatusUnprocessableEntity, models.SubmitResponse{
				OK:    false,
				Error: "no profile data found in page",
			})
			return
		}
		h.logger.Error().Err(err).Msg("Profile extraction failed")
		WriteError(w, http.StatusInternalServerError, "Extraction failed")
		return
	}

	resp := h.coordinator.CandidateSubmitted(r.Context(), candidate)
	resp.Data = mergeExtracted(resp.Data, candidate)
	statusCode := http.StatusOK
	if !resp.OK {
		statusCode = http.StatusBadRequest
	}
	WriteJSON(w, statusCode, resp)
}

// mergeExtracted attaches the extracted record to the response so the
// caller can show what was captured.
func mergeExtracted(data map[string]any, candidate *models.CandidateRecord) map[string]any {
	if data == nil {
		data = make(map[string]any)
	}
	data["candidate"] = candidate
	return data
}
