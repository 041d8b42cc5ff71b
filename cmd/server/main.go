package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courses_sheet_api/internal/api"
	"courses_sheet_api/internal/app/service"
	"courses_sheet_api/internal/common/security"
	"courses_sheet_api/internal/domain/repository"
	"courses_sheet_api/internal/platform/cache"
	"courses_sheet_api/internal/platform/config"
	"courses_sheet_api/internal/platform/database"
)

func main() {
	config.Load()
	fmt.Println("Configuration loaded.")

	security.InitJWT()
	fmt.Println("JWT initialized.")

	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	cache.ConnectRedis()
	defer cache.CloseRedis()
	fmt.Println("Redis connected.")

	userRepo := repository.NewPgUserRepository(database.DB)
	categoryRepo := repository.NewPgCategoryRepository(database.DB)
	subjectRepo := repository.NewPgSubjectRepository(database.DB)
	topicRepo := repository.NewPgTopicRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	progressRepo := repository.NewPgProgressRepository(database.DB)
	exerciseRepo := repository.NewPgExerciseProgressRepository(database.DB)

	authService := service.NewAuthService(userRepo)
	catalogService := service.NewCatalogService(
		categoryRepo, subjectRepo, topicRepo, problemRepo, userRepo,
		cache.RDB, config.AppConfig.StatsCacheTTL,
	)
	topicService := service.NewTopicService(topicRepo, problemRepo, exerciseRepo)
	userService := service.NewUserService(userRepo, topicRepo)
	progressService := service.NewProgressService(
		userRepo, subjectRepo, topicRepo, problemRepo, progressRepo, exerciseRepo,
	)

	router := api.NewRouter(authService, catalogService, topicService, userService, progressService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully.")
}
