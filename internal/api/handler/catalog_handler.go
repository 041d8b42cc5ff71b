package handler

import (
	"encoding/json"
	"net/http"

	"courses_sheet_api/internal/api/middleware"
	"courses_sheet_api/internal/app/service"
	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

// CatalogHandler serves the category/subject/problem catalog plus the admin
// grant and stats endpoints.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterCategoryRoutes(r chi.Router) {
	r.Get("/", h.listCategories)
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator, middleware.AdminOnly)
		admin.Post("/", h.createCategory)
		admin.Put("/{id}", h.updateCategory)
		admin.Delete("/{id}", h.deleteCategory)
	})
}

func (h *CatalogHandler) RegisterSubjectRoutes(r chi.Router) {
	r.Get("/", h.listSubjects)
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator, middleware.AdminOnly)
		admin.Post("/", h.createSubject)
		admin.Put("/{id}", h.updateSubject)
		admin.Delete("/{id}", h.deleteSubject)
	})
}

func (h *CatalogHandler) RegisterProblemRoutes(r chi.Router) {
	r.Get("/", h.listProblems)
	r.Get("/{id}", h.getProblem)
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator, middleware.AdminOnly)
		admin.Post("/", h.createProblem)
		admin.Put("/{id}", h.updateProblem)
		admin.Delete("/{id}", h.deleteProblem)
	})
}

// --- categories ---

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	category, err := h.catalogService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusCreated, category)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, categories)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	category, err := h.catalogService.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, category)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalogService.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithMessage(w, http.StatusOK, category, "Category deleted")
}

// --- subjects ---

func (h *CatalogHandler) createSubject(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	subject, err := h.catalogService.CreateSubject(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusCreated, subject)
}

func (h *CatalogHandler) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.catalogService.ListSubjects(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, subjects)
}

func (h *CatalogHandler) updateSubject(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	subject, err := h.catalogService.UpdateSubject(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, subject)
}

func (h *CatalogHandler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := h.catalogService.DeleteSubject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithMessage(w, http.StatusOK, subject, "Subject deleted")
}

// --- problems ---

func (h *CatalogHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	problem, err := h.catalogService.CreateProblem(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusCreated, problem)
}

func (h *CatalogHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	problems, err := h.catalogService.ListProblems(r.Context(), q.Get("topic"), q.Get("subject"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, problems)
}

func (h *CatalogHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.catalogService.GetProblem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, problem)
}

func (h *CatalogHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	var upd repository.ProblemUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	problem, err := h.catalogService.UpdateProblem(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, problem)
}

func (h *CatalogHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.catalogService.DeleteProblem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithMessage(w, http.StatusOK, problem, "Problem deleted")
}

// --- admin ---

func (h *CatalogHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalogService.AdminDashboard(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, stats)
}

func (h *CatalogHandler) AssignSubject(w http.ResponseWriter, r *http.Request) {
	var req service.SubjectGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	user, err := h.catalogService.AssignSubject(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, user)
}

func (h *CatalogHandler) RemoveSubject(w http.ResponseWriter, r *http.Request) {
	var req service.SubjectGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	user, err := h.catalogService.RemoveSubject(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithData(w, http.StatusOK, user)
}
