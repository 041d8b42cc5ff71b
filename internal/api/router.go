package api

import (
	"net/http"
	"time"

	"courses_sheet_api/internal/api/handler"
	apimiddleware "courses_sheet_api/internal/api/middleware"
	"courses_sheet_api/internal/app/service"
	"courses_sheet_api/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	catalogService *service.CatalogService,
	topicService *service.TopicService,
	userService *service.UserService,
	progressService *service.ProgressService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies any bearer token and puts claims in context; routes decide
	// whether a principal is required.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	topicHandler := handler.NewTopicHandler(topicService)
	userHandler := handler.NewUserHandler(userService)
	progressHandler := handler.NewProgressHandler(progressService)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", authHandler.RegisterRoutes)
		api.Route("/categories", catalogHandler.RegisterCategoryRoutes)
		api.Route("/subjects", catalogHandler.RegisterSubjectRoutes)
		api.Route("/problems", catalogHandler.RegisterProblemRoutes)
		api.Route("/topics", topicHandler.RegisterRoutes)
		api.Route("/user", userHandler.RegisterRoutes)
		api.Route("/progress", progressHandler.RegisterRoutes)

		api.Group(func(auth chi.Router) {
			auth.Use(apimiddleware.Authenticator)
			auth.Get("/dashboard", progressHandler.Dashboard)

			auth.Group(func(admin chi.Router) {
				admin.Use(apimiddleware.AdminOnly)
				admin.Get("/admin-dashboard", catalogHandler.AdminDashboard)
				admin.Post("/assign-subject", catalogHandler.AssignSubject)
				admin.Post("/remove-subject", catalogHandler.RemoveSubject)
			})
		})
	})

	return r
}
