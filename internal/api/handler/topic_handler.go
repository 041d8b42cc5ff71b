package handler

import (
	"encoding/json"
	"net/http"

	"courses_sheet_api/internal/api/middleware"
	"courses_sheet_api/internal/app/service"
	"courses_sheet_api/internal/common"

	"github.com/go-chi/chi/v5"
)

type TopicHandler struct {
	topicService *service.TopicService
}

func NewTopicHandler(topicService *service.TopicService) *TopicHandler {
	return &TopicHandler{topicService: topicService}
}

func (h *TopicHandler) RegisterRoutes(r chi.Router) {
	// Public read; enrichment kicks in when a valid token accompanies the request.
	r.Get("/{id}", h.get)

	r.Group(func(auth chi.Router) {
		auth.Use(middleware.Authenticator)
		auth.Post("/toggle-status", h.toggleStatus)

		auth.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Post("/", h.create)
			admin.Put("/update-with-content", h.updateWithContent)
			admin.Put("/{id}", h.update)
			admin.Delete("/{id}", h.delete)
		})
	})
}

func (h *TopicHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	topic, err := h.topicService.CreateTopic(r.Context(), r.URL.Query().Get("subject"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusCreated, topic)
}

func (h *TopicHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	topic, err := h.topicService.UpdateTopic(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, topic)
}

func (h *TopicHandler) delete(w http.ResponseWriter, r *http.Request) {
	topic, err := h.topicService.DeleteTopic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithMessage(w, http.StatusOK, topic, "Topic deleted")
}

func (h *TopicHandler) updateWithContent(w http.ResponseWriter, r *http.Request) {
	var req service.ReplaceTopicContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	topic, err := h.topicService.ReplaceTopicContent(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, topic)
}

func (h *TopicHandler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TopicID string `json:"topicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	topic, err := h.topicService.ToggleTopicStatus(r.Context(), req.TopicID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, topic)
}

func (h *TopicHandler) get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.OptionalPrincipal(r.Context())
	view, err := h.topicService.GetTopic(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, view)
}
