package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmercer/gamemaster/internal/storage"
)

// HistoryResponse wraps a character's stored transcript.
type HistoryResponse struct {
	Character string           `json:"character"`
	Messages  []historyMessage `json:"messages"`
	Error     string           `json:"error,omitempty"`
}

type historyMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// HistoryHandler serves stored conversation transcripts.
type HistoryHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store storage.Storage, log *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		storage: store,
		logger:  log,
	}
}

// ServeHTTP handles GET /v1/history/{character}
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for history endpoint",
			"method", r.Method, "path", r.URL.Path)
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, HistoryResponse{
			Error: "Method not allowed. Only GET is supported.",
		})
		return
	}

	character := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/history"), "/")
	if character == "" || strings.Contains(character, "/") {
		writeJSON(w, h.logger, http.StatusBadRequest, HistoryResponse{
			Error: "Expected path /v1/history/{character}.",
		})
		return
	}

	messages, err := h.storage.GetHistory(r.Context(), character)
	if err != nil {
		h.logger.Error("Failed to load history", "character", character, "error", err)
		writeJSON(w, h.logger, http.StatusInternalServerError, HistoryResponse{
			Error: "Failed to load history.",
		})
		return
	}

	response := HistoryResponse{
		Character: character,
		Messages:  make([]historyMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, historyMessage{
			Role: msg.Role,
			Text: msg.Content,
		})
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding history response", "error", err)
	}
}
