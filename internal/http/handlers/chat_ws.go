package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/carehub/internal/chat"
)

// wsInbound is a frame sent by the browser.
type wsInbound struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// wsOutbound is a frame sent to the browser.
type wsOutbound struct {
	Type           string         `json:"type"` // "session", "history", "delta", "done", "error", "pong"
	ConversationID string         `json:"conversation_id,omitempty"`
	Delta          string         `json:"delta,omitempty"`
	Message        *chat.Message  `json:"message,omitempty"`
	Messages       []chat.Message `json:"messages,omitempty"`
	Error          string         `json:"error,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// StreamWS carries the same conversation over a websocket. One reply is
// streamed at a time; frames received meanwhile wait their turn.
// GET /v1/chat/ws?conversation_id=...
func (h *ChatHandler) StreamWS(w http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r)
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r, userID)
	}).ServeHTTP(w, r)
}

func (h *ChatHandler) serveWS(conn *websocket.Conn, r *http.Request, userID string) {
	ctx := r.Context()
	convID := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if convID == "" {
		convID = uuid.NewString()
	}
	_ = websocket.JSON.Send(conn, wsOutbound{Type: "session", ConversationID: convID})

	if history, err := h.service.History(ctx, userID, convID); err == nil && len(history) > 0 {
		_ = websocket.JSON.Send(conn, wsOutbound{Type: "history", ConversationID: convID, Messages: history})
	}

	h.logger.Debug("chat websocket opened", "user_id", userID, "conversation_id", convID)
	for {
		var in wsInbound
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			h.logger.Debug("chat websocket closed", "user_id", userID, "error", err)
			return
		}
		switch {
		case in.Type == "ping":
			_ = websocket.JSON.Send(conn, wsOutbound{Type: "pong"})
			continue
		case in.Type != "message" || strings.TrimSpace(in.Text) == "":
			continue
		}

		reply, err := h.service.Send(ctx, userID, convID, in.Text, func(delta string) error {
			return websocket.JSON.Send(conn, wsOutbound{Type: "delta", Delta: delta})
		})
		if err != nil {
			if sendErr := websocket.JSON.Send(conn, wsOutbound{
				Type:   "error",
				Error:  "assistant unavailable",
				Reason: chat.FailureReason(err),
			}); sendErr != nil {
				return
			}
			continue
		}
		if err := websocket.JSON.Send(conn, wsOutbound{Type: "done", ConversationID: convID, Message: &reply}); err != nil {
			return
		}
	}
}
