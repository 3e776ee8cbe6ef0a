package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/locustgrub/locustgrub/server/internal/api/respond"
	"github.com/locustgrub/locustgrub/server/internal/model"
	"github.com/locustgrub/locustgrub/server/internal/services"
)

// CheckinHandler exposes the check-in core over HTTP.
type CheckinHandler struct {
	svc *services.CheckinService
}

func NewCheckinHandler(svc *services.CheckinService) *CheckinHandler {
	return &CheckinHandler{svc: svc}
}

// SubmitCheckin handles POST /api/checkins.
func (h *CheckinHandler) SubmitCheckin(w http.ResponseWriter, r *http.Request) {
	var in model.CheckinInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	rec, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, rec)
}

// GetVendorStatus handles GET /api/vendors/{vendorId}/status.
func (h *CheckinHandler) GetVendorStatus(w http.ResponseWriter, r *http.Request) {
	vendorID := mux.Vars(r)["vendorId"]
	status, err := h.svc.GetStatus(r.Context(), vendorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, status)
}

// ListRecent handles GET /api/checkins/recent?limit=N.
func (h *CheckinHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respond.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	recs, err := h.svc.GetRecent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []*model.Checkin{}
	}
	respond.WriteJSON(w, http.StatusOK, recs)
}

// ListWindow handles GET /api/checkins?minutes=N.
func (h *CheckinHandler) ListWindow(w http.ResponseWriter, r *http.Request) {
	minutes := 0
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respond.WriteBadRequest(w, "minutes must be an integer")
			return
		}
		minutes = parsed
	}
	recs, err := h.svc.GetWindow(r.Context(), minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []*model.Checkin{}
	}
	respond.WriteJSON(w, http.StatusOK, recs)
}

// writeServiceError maps the core error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrModerationRejected):
		respond.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrRateLimited):
		respond.WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, model.ErrStorageUnavailable):
		respond.WriteServiceUnavailable(w, "storage unavailable")
	default:
		// ErrConflict lands here: an internal invariant violation the caller
		// cannot recover from.
		respond.WriteInternalError(w, "internal error")
	}
}
