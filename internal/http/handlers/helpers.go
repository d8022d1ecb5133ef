package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/identity"
	"github.com/wolfman30/carehub/internal/sessions"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func requestUserID(r *http.Request) (string, bool) {
	return identity.UserIDFromContext(r.Context())
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sessions.ErrFlowNotFound),
		errors.Is(err, sessions.ErrUnknownVertical),
		errors.Is(err, bookings.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrPrerequisiteMissing),
		errors.Is(err, flow.ErrIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, flow.ErrPersistFailed):
		return http.StatusBadGateway
	case errors.Is(err, flow.ErrTransitionNotAllowed),
		errors.Is(err, flow.ErrFlowClosed),
		errors.Is(err, flow.ErrFlowCompleted),
		errors.Is(err, flow.ErrConfirmInProgress),
		errors.Is(err, flow.ErrAssignmentInProgress),
		errors.Is(err, flow.ErrNoAssignment),
		errors.Is(err, bookings.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, sessions.ErrMissingUser),
		errors.Is(err, bookings.ErrMissingUserID),
		errors.Is(err, bookings.ErrInvalidStatus),
		errors.Is(err, bookings.ErrInvalidType),
		errors.Is(err, bookings.ErrMissingTitle),
		errors.Is(err, bookings.ErrNegativeAmount),
		errors.Is(err, bookings.ErrInvalidDate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders err with its mapped status. Internal errors are
// not echoed to the caller.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		jsonError(w, "internal error", status)
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Missing: flow.MissingFields(err)})
}
