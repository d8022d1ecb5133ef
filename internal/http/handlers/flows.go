package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/internal/sessions"
	"github.com/wolfman30/carehub/internal/verticals"
	"github.com/wolfman30/carehub/pkg/logging"
)

// NotificationDrainer hands back and clears a user's pending notifications.
type NotificationDrainer interface {
	Drain(ctx context.Context, userID string) ([]notify.Notification, error)
}

// FlowsHandler exposes booking flows over HTTP.
type FlowsHandler struct {
	sessions      *sessions.Registry
	verticals     *verticals.Registry
	notifications NotificationDrainer
	logger        *logging.Logger
	confirmWait   time.Duration
}

func NewFlowsHandler(reg *sessions.Registry, catalog *verticals.Registry, notifications NotificationDrainer, logger *logging.Logger) *FlowsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FlowsHandler{
		sessions:      reg,
		verticals:     catalog,
		notifications: notifications,
		logger:        logger,
	}
}

// WithConfirmTimeout bounds how long a confirm request waits on the booking store.
func (h *FlowsHandler) WithConfirmTimeout(d time.Duration) *FlowsHandler {
	if d > 0 {
		h.confirmWait = d
	}
	return h
}

func (h *FlowsHandler) confirmContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.confirmWait <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.confirmWait)
}

// Routes mounts the flow endpoints on r.
func (h *FlowsHandler) Routes(r chi.Router) {
	r.Get("/verticals", h.ListVerticals)
	r.Get("/verticals/{vertical}/catalog", h.GetCatalog)
	r.Post("/flows/{vertical}", h.StartFlow)
	r.Get("/flows/{flowID}", h.GetFlow)
	r.Patch("/flows/{flowID}", h.UpdateFlow)
	r.Delete("/flows/{flowID}", h.EndFlow)
	r.Post("/flows/{flowID}/advance", h.Advance)
	r.Post("/flows/{flowID}/back", h.Back)
	r.Post("/flows/{flowID}/assignment/retry", h.RetryAssignment)
	r.Post("/flows/{flowID}/confirm", h.Confirm)
	r.Get("/notifications", h.DrainNotifications)
}

// ListVerticals returns every bookable vertical.
// GET /v1/verticals
func (h *FlowsHandler) ListVerticals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"verticals": h.verticals.List()})
}

// GetCatalog returns the choices a vertical offers.
// GET /v1/verticals/{vertical}/catalog
func (h *FlowsHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.verticals.Catalog(chi.URLParam(r, "vertical"))
	if !ok {
		jsonError(w, "unknown vertical", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// StartFlow opens a flow, replacing any active flow of the same vertical.
// POST /v1/flows/{vertical}
func (h *FlowsHandler) StartFlow(w http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r)
	f, err := h.sessions.Start(userID, strings.TrimSpace(chi.URLParam(r, "vertical")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f.View())
}

// GET /v1/flows/{flowID}
func (h *FlowsHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.View())
}

// UpdateFlow merges a partial state into the flow.
// PATCH /v1/flows/{flowID}
func (h *FlowsHandler) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var partial map[string]any
	if err := decodeJSON(w, r, &partial); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := f.Update(partial); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.View())
}

type advanceRequest struct {
	To    flow.Step      `json:"to"`
	State map[string]any `json:"state,omitempty"`
}

// Advance moves to the requested step, merging any state sent with it. A
// rejected move leaves the state untouched. Advancing to the terminal step
// confirms the booking.
// POST /v1/flows/{flowID}/advance
func (h *FlowsHandler) Advance(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req advanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.To == "" {
		jsonError(w, "missing target step", http.StatusBadRequest)
		return
	}
	ctx, cancel := h.confirmContext(r)
	defer cancel()
	if err := f.AdvanceWith(ctx, req.To, req.State); err != nil {
		h.logger.Info("flow advance rejected", "flow_id", f.ID(), "vertical", f.Vertical(), "to", req.To, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.View())
}

// Back returns to the previous step. Going back from the first step, or
// leaving after confirmation, ends the flow.
// POST /v1/flows/{flowID}/back
func (h *FlowsHandler) Back(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	err := f.Back()
	if errors.Is(err, flow.ErrLeaveFlow) {
		userID, _ := requestUserID(r)
		if endErr := h.sessions.End(userID, f.ID()); endErr != nil && !errors.Is(endErr, sessions.ErrFlowNotFound) {
			writeDomainError(w, endErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"left_flow": true})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.View())
}

// POST /v1/flows/{flowID}/assignment/retry
func (h *FlowsHandler) RetryAssignment(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := f.RetryAssignment(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, f.View())
}

type confirmResponse struct {
	Confirmation *flow.Confirmation `json:"confirmation"`
	Flow         flow.View          `json:"flow"`
}

// Confirm persists the booking. Retrying after a failure reuses the
// booking code; confirming again after success returns the same result.
// POST /v1/flows/{flowID}/confirm
func (h *FlowsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.confirmContext(r)
	defer cancel()
	conf, err := f.Confirm(ctx)
	if err != nil {
		if errors.Is(err, flow.ErrPersistFailed) {
			h.logger.Error("booking confirm failed", "flow_id", f.ID(), "vertical", f.Vertical(), "error", err)
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{Confirmation: conf, Flow: f.View()})
}

// EndFlow abandons a flow.
// DELETE /v1/flows/{flowID}
func (h *FlowsHandler) EndFlow(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "flowID")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, _ := requestUserID(r)
	if err := h.sessions.End(userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DrainNotifications returns the user's pending toasts and clears them.
// GET /v1/notifications
func (h *FlowsHandler) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r)
	if h.notifications == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []notify.Notification{}})
		return
	}
	items, err := h.notifications.Drain(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to drain notifications", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *FlowsHandler) lookup(w http.ResponseWriter, r *http.Request) (*flow.Flow, bool) {
	id, err := uuidParam(r, "flowID")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	userID, _ := requestUserID(r)
	f, err := h.sessions.Get(userID, id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return f, true
}
