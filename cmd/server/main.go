package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/Jkinney331/CombatID-sub001/internal/config"
	"github.com/Jkinney331/CombatID-sub001/internal/database"
	"github.com/Jkinney331/CombatID-sub001/internal/handlers"
	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/repository"
	cron "github.com/Jkinney331/CombatID-sub001/internal/scheduler"
	"github.com/Jkinney331/CombatID-sub001/internal/services"
	"github.com/Jkinney331/CombatID-sub001/pkg/logger"
	"github.com/Jkinney331/CombatID-sub001/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}
	if err := database.EnsureIndexes(context.Background(), db); err != nil {
		log.Fatalf("Index creation error: %v", err)
	}

	// --- Repositories ---
	consentRepo := repository.NewConsentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	identityRepo := repository.NewIdentityRepository(db)

	// --- Services ---
	providers := map[models.NotificationChannel]services.DeliveryProvider{
		models.ChannelEmail: services.NewEmailProvider(identityRepo),
	}
	consentService := services.NewConsentService(consentRepo, models.ConsentVersions)
	notificationService := services.NewNotificationService(notificationRepo, preferenceRepo, providers)
	complianceService := services.NewComplianceService(consentService, notificationService, identityRepo)

	// --- Handlers ---
	consentHandler := handlers.NewConsentHandler(consentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	complianceHandler := handlers.NewComplianceHandler(complianceService)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Consent routes
	consentRoutes := router.PathPrefix("/consent").Subrouter()
	consentRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	consentRoutes.HandleFunc("/status", consentHandler.GetStatusHandler).Methods("GET")
	consentRoutes.HandleFunc("/required", consentHandler.GetRequiredHandler).Methods("GET")
	consentRoutes.HandleFunc("/missing", consentHandler.GetMissingHandler).Methods("GET")
	consentRoutes.HandleFunc("/history", consentHandler.GetHistoryHandler).Methods("GET")
	consentRoutes.HandleFunc("/grant", consentHandler.GrantConsentHandler).Methods("POST")
	consentRoutes.HandleFunc("/grant-bulk", consentHandler.GrantBulkHandler).Methods("POST")
	consentRoutes.HandleFunc("/revoke/{type}", consentHandler.RevokeConsentHandler).Methods("PUT")

	// Compliance routes
	complianceRoutes := router.PathPrefix("/compliance").Subrouter()
	complianceRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	complianceRoutes.HandleFunc("/export", complianceHandler.ExportUserDataHandler).Methods("GET")
	complianceRoutes.HandleFunc("/delete-request", complianceHandler.RequestDataDeletionHandler).Methods("POST")
	complianceRoutes.HandleFunc("/signup-consents", complianceHandler.SignupConsentsHandler).Methods("POST")

	// Notification routes. Literal paths are registered before /{id} so mux
	// does not swallow them as ids.
	notificationRoutes := router.PathPrefix("/notifications").Subrouter()
	notificationRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	notificationRoutes.HandleFunc("/unread-count", notificationHandler.GetUnreadCountHandler).Methods("GET")
	notificationRoutes.HandleFunc("/preferences", notificationHandler.GetPreferencesHandler).Methods("GET")
	notificationRoutes.HandleFunc("/preferences", notificationHandler.UpdatePreferenceHandler).Methods("PUT")
	notificationRoutes.HandleFunc("/preferences/initialize", notificationHandler.InitializePreferencesHandler).Methods("POST")
	notificationRoutes.HandleFunc("/read-all", notificationHandler.MarkAllAsReadHandler).Methods("PUT")
	notificationRoutes.HandleFunc("/{id}/read", notificationHandler.MarkAsReadHandler).Methods("PUT")
	notificationRoutes.HandleFunc("/{id}", notificationHandler.GetNotificationHandler).Methods("GET")
	notificationRoutes.HandleFunc("/{id}", notificationHandler.DeleteNotificationHandler).Methods("DELETE")
	notificationRoutes.HandleFunc("", notificationHandler.GetMyNotificationsHandler).Methods("GET")
	notificationRoutes.HandleFunc("", notificationHandler.DeleteAllNotificationsHandler).Methods("DELETE")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Start the dispatch sweep
	cron.StartNotificationCronJobs(notificationService, cfg.SweepSchedule)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // adjust to frontend origin
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
