package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/agent"
	"github.com/dvloznov/ledger-assistant/internal/api/middleware"
	"github.com/dvloznov/ledger-assistant/internal/logger"
	"github.com/dvloznov/ledger-assistant/internal/tools"
)

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	SessionID        string         `json:"session_id"`
	Reply            string         `json:"reply"`
	Outcome          agent.Outcome  `json:"outcome"`
	NeedsCredentials bool           `json:"needs_credentials"`
	ToolCalls        []tools.Result `json:"tool_calls"`
}

// ChatHandler exposes assistant sessions over HTTP.
type ChatHandler struct {
	sessions *agent.Manager
	log      zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(sessions *agent.Manager, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{sessions: sessions, log: log}
}

// SendMessage handles POST /api/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	session, err := h.sessions.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		h.writeSessionError(w, req.SessionID, err)
		return
	}

	reply, err := session.SendMessage(ctx, req.Message)
	resp := ChatResponse{
		SessionID:        session.ID(),
		Reply:            reply.Text,
		Outcome:          reply.Outcome,
		NeedsCredentials: reply.NeedsCredentials,
		ToolCalls:        reply.ToolResults,
	}
	if resp.ToolCalls == nil {
		resp.ToolCalls = []tools.Result{}
	}

	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, agent.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, agent.ErrCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, agent.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("session_id", session.ID()).Msg("Chat message not completed")
	}

	middleware.WriteJSON(w, status, resp)
}

// SetCredentials handles POST /api/chat/credentials
// An empty session_id starts a new session bound to the key.
func (h *ChatHandler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		SessionID string `json:"session_id"`
		APIKey    string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.APIKey = strings.TrimSpace(req.APIKey)
	if req.APIKey == "" {
		middleware.WriteError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		session, err := h.sessions.CreateWithKey(ctx, req.APIKey)
		if err != nil {
			h.writeSessionError(w, "", err)
			return
		}
		sessionID = session.ID()
	} else if err := h.sessions.UpdateCredentials(ctx, sessionID, req.APIKey); err != nil {
		h.writeSessionError(w, sessionID, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

// EndSession handles DELETE /api/chat/{id}
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !h.sessions.End(sessionID) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) writeSessionError(w http.ResponseWriter, sessionID string, err error) {
	if errors.Is(err, agent.ErrSessionNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to open session")
	if errors.Is(err, agent.ErrCredentials) {
		middleware.WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error":             "Assistant is not configured",
			"needs_credentials": true,
		})
		return
	}
	middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
		"error":             "Assistant is unavailable",
		"needs_credentials": false,
	})
}
