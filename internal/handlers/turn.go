package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jmercer/gamemaster/internal/logger"
	"github.com/jmercer/gamemaster/internal/session"
	"github.com/jmercer/gamemaster/internal/storage"
	"github.com/jmercer/gamemaster/pkg/chat"
)

// turnTimeout bounds one full turn including all model round trips.
const turnTimeout = 3 * time.Minute

// TurnHandler runs one game turn per request.
type TurnHandler struct {
	sessions *session.Manager
	storage  storage.Storage
	logger   *slog.Logger
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(sessions *session.Manager, store storage.Storage, log *slog.Logger) *TurnHandler {
	return &TurnHandler{
		sessions: sessions,
		storage:  store,
		logger:   log,
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Error encoding response", "error", err)
	}
}

// ServeHTTP handles HTTP requests for game turns
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log := logger.WithRequestID(h.logger, uuid.NewString())

	if r.Method != http.MethodPost {
		log.Warn("Method not allowed for turn endpoint",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		writeJSON(w, log, http.StatusMethodNotAllowed, chat.TurnResponse{
			Error: "Method not allowed. Only POST is supported.",
		})
		return
	}

	var request chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Warn("Invalid request body", "error", err)
		writeJSON(w, log, http.StatusBadRequest, chat.TurnResponse{
			Error: "Invalid request body. Expected JSON with 'player_id' and 'prompt' fields.",
		})
		return
	}

	if err := request.Validate(); err != nil {
		log.Warn("Invalid turn request", "error", err)
		writeJSON(w, log, http.StatusBadRequest, chat.TurnResponse{
			Error: err.Error(),
		})
		return
	}

	log.Info("Turn requested",
		"player_id", request.PlayerID,
		"character", request.Character,
		"remote_addr", r.RemoteAddr)

	s, err := h.sessions.Acquire(request.PlayerID)
	if err != nil {
		if errors.Is(err, session.ErrTurnInProgress) {
			writeJSON(w, log, http.StatusConflict, chat.TurnResponse{
				Error: "A turn is already in progress for this player.",
			})
			return
		}
		log.Error("Failed to create session", "error", err, "player_id", request.PlayerID)
		writeJSON(w, log, http.StatusInternalServerError, chat.TurnResponse{
			Error: "Failed to start session. Please try again.",
		})
		return
	}
	defer h.sessions.Release(s)

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()

	historyKey := request.Character
	if historyKey == "" {
		historyKey = request.PlayerID
	}

	history, err := h.storage.GetHistory(ctx, historyKey)
	if err != nil {
		// A missing transcript degrades the turn, it does not block it.
		log.Warn("Failed to load history, continuing without it", "error", err)
		history = nil
	}

	result, err := s.GM.ProcessTurn(ctx, request.Prompt, history)
	if err != nil {
		log.Error("Turn failed", "error", err, "player_id", request.PlayerID)
		writeJSON(w, log, http.StatusInternalServerError, chat.TurnResponse{
			Error: "Failed to process turn. Please try again.",
		})
		return
	}

	if err := h.storage.AppendHistory(ctx, historyKey,
		chat.Message{Role: chat.RolePlayer, Content: request.Prompt},
		chat.Message{Role: chat.RoleCharacter, Content: result.Narrative},
	); err != nil {
		log.Error("Failed to persist history", "error", err)
	}

	writeJSON(w, log, http.StatusOK, chat.TurnResponse{
		Response:         result.Narrative,
		ActionResult:     result.ActionResult,
		InventoryUpdated: result.InventoryChanged,
	})
}
