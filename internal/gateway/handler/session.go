package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"oims/internal/gateway/service"
	"oims/internal/workflow"
	"oims/internal/workflow/validator"
	apperrors "oims/pkg/errors"
	httputil "oims/pkg/http"
	"oims/pkg/logger"
	"oims/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SessionHandler struct {
	manager *service.SessionManager
	log     *logger.Logger
}

func NewSessionHandler(manager *service.SessionManager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		log:     log,
	}
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/booking-requests", h.Create)
	router.GET("/api/v1/booking-requests/:id", h.Get)
	router.PATCH("/api/v1/booking-requests/:id", h.Update)
	router.DELETE("/api/v1/booking-requests/:id", h.Delete)
	router.POST("/api/v1/booking-requests/:id/check-availability", h.CheckAvailability)
	router.POST("/api/v1/booking-requests/:id/submit", h.Submit)

	router.GET("/api/v1/resources/equipment", h.Equipment)
	router.GET("/api/v1/resources/workspaces", h.Workspaces)
	router.GET("/api/v1/resources/projects", h.Projects)
}

type createSessionRequest struct {
	EditBookingID int `json:"edit_booking_id,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	workflow.View
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// An empty body opens a plain create-mode session. Chunked requests
	// carry ContentLength -1, so emptiness is decided by the decoder, not
	// the header.
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	id, view, err := h.manager.Create(r.Context(), req.EditBookingID)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	httputil.WriteCreated(w, sessionResponse{SessionID: id, View: view})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	view, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	httputil.WriteSuccess(w, sessionResponse{SessionID: id, View: view})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var patch service.DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	view, err := h.manager.Apply(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	httputil.WriteSuccess(w, sessionResponse{SessionID: id, View: view})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SessionHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	view, err := h.manager.CheckAvailability(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, "CheckAvailability", id, view, err)
		return
	}

	httputil.WriteSuccess(w, sessionResponse{SessionID: id, View: view})
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	view, err := h.manager.Submit(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, "Submit", id, view, err)
		return
	}

	httputil.WriteSuccess(w, sessionResponse{SessionID: id, View: view})
}

func (h *SessionHandler) Equipment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Equipment", err)
		return
	}

	filter := model.EquipmentFilter{
		Status: model.EquipmentStatus(r.URL.Query().Get("status")),
		Lab:    r.URL.Query().Get("lab"),
		Search: r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("category"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.Category = v
		}
	}

	items, err := h.manager.Equipment(r.Context(), filter)
	if err != nil {
		h.writeError(w, "Equipment", err)
		return
	}

	total := int64(len(items))
	page := paginate(items, limit, offset)

	httputil.WritePaginated(w, page, total, limit, int(offset))
}

// paginate slices an already-fetched listing; the backend catalog endpoints
// return full result sets.
func paginate[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return []T{}
	}
	end := int(offset) + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (h *SessionHandler) Workspaces(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	items, err := h.manager.Workspaces(r.Context())
	if err != nil {
		h.writeError(w, "Workspaces", err)
		return
	}

	httputil.WriteSuccess(w, items)
}

func (h *SessionHandler) Projects(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var filter model.ProjectFilter
	if s := r.URL.Query().Get("user"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.UserID = v
		}
	}
	filter.Status = r.URL.Query().Get("status")

	items, err := h.manager.Projects(r.Context(), filter)
	if err != nil {
		h.writeError(w, "Projects", err)
		return
	}

	httputil.WriteSuccess(w, items)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, op string, err error) {
	appErr := translate(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error("Request failed", "handler", op, "error", err)
	}
	httputil.WriteError(w, appErr)
}

// writeWorkflowError returns the session view alongside the error payload
// so the UI can render field errors and the current state together.
func (h *SessionHandler) writeWorkflowError(w http.ResponseWriter, op, id string, view workflow.View, err error) {
	appErr := translate(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error("Request failed", "handler", op, "session_id", id, "error", err)
	}

	httputil.WriteJSON(w, appErr.HTTPStatus, struct {
		httputil.ErrorResponse
		SessionID string        `json:"session_id"`
		View      workflow.View `json:"view"`
	}{
		ErrorResponse: httputil.ErrorResponse{
			Error:   appErr.Message,
			Details: appErr.Details,
		},
		SessionID: id,
		View:      view,
	})
}

// translate maps workflow sentinels and validation failures onto the error
// taxonomy the writers know how to render.
func translate(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]any, len(verrs))
		for field, message := range verrs.Fields() {
			details[field] = message
		}
		return apperrors.Validation("Draft validation failed", details)
	}

	switch {
	case errors.Is(err, workflow.ErrRequestInFlight):
		return apperrors.Busy("booking request")
	case errors.Is(err, workflow.ErrAvailabilityNotConfirmed):
		return apperrors.Conflict("Availability must be confirmed for the current selection before submitting")
	case errors.Is(err, workflow.ErrAlreadySubmitted):
		return apperrors.Conflict("This booking request has already been submitted")
	case errors.Is(err, workflow.ErrNotEditing):
		return apperrors.InvalidInput("This session is not editing an existing booking")
	}

	return apperrors.AsAppError(err)
}
