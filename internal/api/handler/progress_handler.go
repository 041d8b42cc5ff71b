package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"courses_sheet_api/internal/api/middleware"
	"courses_sheet_api/internal/app/service"
	"courses_sheet_api/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProgressHandler struct {
	progressService *service.ProgressService
}

func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// RegisterRoutes mounts the authenticated progress endpoints; the admin-only
// submission listing is gated separately.
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(auth chi.Router) {
		auth.Use(middleware.Authenticator)
		auth.Get("/", h.listUserProgress)
		auth.Post("/", h.updateLegacyProgress)
		auth.Post("/attempt", h.saveAttempt)
		auth.Get("/summary", h.summary)
		auth.Post("/topic-toggle", h.toggleTopic)

		auth.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Get("/all", h.listSubmissions)
		})
	})
}

func (h *ProgressHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	data, err := h.progressService.UserDashboard(r.Context(), principal.ID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, data)
}

func (h *ProgressHandler) listUserProgress(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	records, err := h.progressService.ListUserProgress(r.Context(), principal.ID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, records)
}

func (h *ProgressHandler) updateLegacyProgress(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	var req service.UpdateLegacyProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	record, err := h.progressService.UpdateLegacyProgress(r.Context(), principal.ID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, record)
}

func (h *ProgressHandler) saveAttempt(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	var req service.SaveAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	record, err := h.progressService.SaveAttempt(r.Context(), principal.ID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, record)
}

func (h *ProgressHandler) summary(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	summary, err := h.progressService.ProgressSummary(r.Context(), principal.ID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, summary)
}

func (h *ProgressHandler) toggleTopic(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	var req struct {
		TopicID string `json:"topicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.progressService.ToggleTopicCompletion(r.Context(), principal.ID, req.TopicID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, result)
}

func (h *ProgressHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	req := service.ListSubmissionsRequest{
		User:    q.Get("user"),
		Subject: q.Get("subject"),
		Topic:   q.Get("topic"),
		Page:    page,
		Limit:   limit,
	}
	result, err := h.progressService.ListSubmissions(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, result)
}
