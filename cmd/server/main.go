package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stewardwell/internal/config"
	"stewardwell/internal/database"
	"stewardwell/internal/handlers"
	"stewardwell/internal/repository"
	"stewardwell/internal/security"
	"stewardwell/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	childRepo := repository.NewChildRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	familyService := service.NewFamilyService(familyRepo, membershipRepo)
	membershipService := service.NewMembershipService(membershipRepo, familyRepo, userRepo, emailService, cfg.InvitationTTL)
	childService := service.NewChildService(childRepo, membershipRepo)
	authService := service.NewAuthService(userRepo, familyService, emailService, cfg.SessionDuration)
	settingsService := service.NewSettingsService(settingsRepo, membershipRepo)

	// Security helpers
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	childTokens := security.NewChildTokenIssuer(cfg.ChildTokenSecret, cfg.SessionDuration)
	loginLimiter := security.NewRateLimiter(10, time.Minute)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, childTokens, csrf, loginLimiter)
	authHandler := handlers.NewAuthHandler(authService, csrf, cfg)
	familyHandler := handlers.NewFamilyHandler(familyService, membershipService)
	childHandler := handlers.NewChildHandler(childService, childTokens, cfg.SessionDuration)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("GET /api/oauth/providers", authHandler.Providers)
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Family routes
	mux.HandleFunc("POST /api/families", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.CreateFamily)))
	mux.HandleFunc("GET /api/families", middleware.RequireAuth(familyHandler.ListFamilies))
	mux.HandleFunc("POST /api/families/join", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.JoinFamily)))
	mux.HandleFunc("GET /api/families/{id}", middleware.RequireAuth(familyHandler.GetFamily))
	mux.HandleFunc("PATCH /api/families/{id}", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.RenameFamily)))
	mux.HandleFunc("DELETE /api/families/{id}", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.DeleteFamily)))
	mux.HandleFunc("GET /api/families/{id}/members", middleware.RequireAuth(familyHandler.ListMembers))
	mux.HandleFunc("POST /api/families/{id}/transfer", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.TransferManager)))

	// Invitation routes
	mux.HandleFunc("GET /api/families/{id}/invitations", middleware.RequireAuth(familyHandler.ListInvitations))
	mux.HandleFunc("POST /api/families/{id}/invitations", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.Invite)))
	mux.HandleFunc("POST /api/invitations/accept", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.AcceptInvitation)))
	mux.HandleFunc("GET /api/memberships/{id}", middleware.RequireAuth(familyHandler.GetMembership))
	mux.HandleFunc("POST /api/memberships/{id}/approve", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.ApproveMembership)))
	mux.HandleFunc("DELETE /api/memberships/{id}", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.RemoveMembership)))

	// Child routes
	mux.HandleFunc("POST /api/families/{id}/children", middleware.RequireAuth(middleware.CSRFProtect(childHandler.CreateChild)))
	mux.HandleFunc("GET /api/families/{id}/children", middleware.RequireAuth(childHandler.ListChildren))
	mux.HandleFunc("PATCH /api/children/{id}", middleware.RequireAuth(middleware.CSRFProtect(childHandler.UpdateChild)))
	mux.HandleFunc("DELETE /api/children/{id}", middleware.RequireAuth(middleware.CSRFProtect(childHandler.DeleteChild)))
	mux.HandleFunc("POST /api/children/login", middleware.RateLimit(childHandler.ChildLogin))
	mux.HandleFunc("POST /api/children/logout", childHandler.ChildLogout)
	mux.HandleFunc("GET /api/children/me", middleware.RequireChildAuth(childHandler.ChildMe))

	// Settings routes
	mux.HandleFunc("GET /api/families/{id}/settings", middleware.RequireAuth(settingsHandler.GetSettings))
	mux.HandleFunc("PUT /api/families/{id}/settings", middleware.RequireAuth(middleware.CSRFProtect(settingsHandler.UpdateSettings)))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else {
			log.Println("Expired sessions cleaned up")
		}
	}
}
