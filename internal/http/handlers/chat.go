package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wolfman30/carehub/internal/chat"
	"github.com/wolfman30/carehub/pkg/logging"
)

// ChatHandler relays the assistant's reply to the browser as server-sent
// events.
type ChatHandler struct {
	service *chat.Service
	logger  *logging.Logger
}

func NewChatHandler(service *chat.Service, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{service: service, logger: logger}
}

func (h *ChatHandler) Routes(r chi.Router) {
	r.Post("/chat", h.Stream)
	r.Get("/chat/ws", h.StreamWS)
	r.Get("/chat/{conversationID}", h.History)
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (s sseWriter) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Stream sends one user message and streams the reply.
// POST /v1/chat
//
// Each delta is a bare data event {"delta": "..."}. The stream ends with a
// "done" event carrying the stored reply, or an "error" event when the
// backend fails.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r)
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, "message required", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	convID := strings.TrimSpace(req.ConversationID)
	if convID == "" {
		convID = uuid.NewString()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Conversation-Id", convID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sse := sseWriter{w: w, f: flusher}
	reply, err := h.service.Send(r.Context(), userID, convID, req.Message, func(delta string) error {
		return sse.event("", map[string]string{"delta": delta})
	})
	if err != nil {
		_ = sse.event("error", map[string]string{
			"error":  "assistant unavailable",
			"reason": chat.FailureReason(err),
		})
		return
	}
	_ = sse.event("done", map[string]any{
		"conversation_id": convID,
		"message":         reply,
	})
}

// History returns the caller's transcript for a conversation.
// GET /v1/chat/{conversationID}
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r)
	convID := strings.TrimSpace(chi.URLParam(r, "conversationID"))
	messages, err := h.service.History(r.Context(), userID, convID)
	if err != nil {
		h.logger.Error("failed to load chat history", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": convID, "messages": messages})
}
