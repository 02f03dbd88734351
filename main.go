// main.go
// PlotGate Portal API - plot sales and facility access control
// Wires Firestore, Firebase Auth, JWT sessions and the QR gate services.

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

	"github.com/joho/godotenv"

	"plotgate/auth"
	"plotgate/config"
	"plotgate/db"
	"plotgate/gate"
	"plotgate/handlers"
	"plotgate/middleware"
	"plotgate/models"
	"plotgate/tasks"
	"plotgate/users"
	"plotgate/visits"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	log.Printf("🚀 Starting PlotGate API Server")
	log.Printf("📍 Environment: %s", cfg.Server.Environment)
	log.Printf("🔧 Port: %s", cfg.Server.Port)
	if cfg.Maintenance {
		log.Printf("🚧 Maintenance mode is ON: decision and gate endpoints disabled")
	}

	ctx := context.Background()
	firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Firestore: %v", err)
	}
	defer firestoreDB.Close()

	identity, err := auth.NewIdentityGateway(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Firebase Auth: %v", err)
	}

	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	log.Printf("🔐 JWT Manager initialized (expiration: %v)", cfg.JWT.Expiration)

	// Core services
	siteLocation := cfg.Location()
	accountService := users.NewService(identity, firestoreDB, auth.HashPassword)
	issuer := gate.NewIssuer(firestoreDB, siteLocation)
	verifier := gate.NewVerifier(firestoreDB)
	visitService := visits.NewService(firestoreDB, issuer)
	sweeper := visits.NewSweeper(firestoreDB, accountService)
	taskService := tasks.NewService(firestoreDB)

	// Handlers
	authHandler := handlers.NewAuthHandler(firestoreDB, jwtManager)
	visitHandler := handlers.NewVisitHandler(visitService)
	qrHandler := handlers.NewQRHandler(issuer, verifier, firestoreDB)
	sweepHandler := handlers.NewSweepHandler(sweeper)
	taskHandler := handlers.NewTaskHandler(taskService)
	adminHandler := handlers.NewAdminHandler(accountService, firestoreDB)
	exportHandler := handlers.NewExportHandler(firestoreDB)
	log.Printf("✅ Handlers initialized")

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters()
	log.Printf("🛡️  Rate limiter initialized (%d requests per %v)", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh", authHandler.RefreshToken)

	// The expiry sweep is triggered by an external cron-style scheduler.
	mux.HandleFunc("/api/check-expired-visits", sweepHandler.CheckExpiredVisits)

	authMiddleware := middleware.AuthMiddleware(jwtManager, firestoreDB)
	maintenance := middleware.Maintenance(cfg.Maintenance)

	adminOnly := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
	gateStaff := middleware.RequireRole(models.RoleManager, models.RoleAdmin, models.RoleSuperAdmin)
	managerOnly := middleware.RequireRole(models.RoleManager)
	clientOnly := middleware.RequireRole(models.RoleClient)

	// Visit booking (any authenticated role)
	mux.Handle("/api/visits", authMiddleware(visitsMux(visitHandler)))

	// Admin decision endpoints (maintenance-gated)
	mux.Handle("/api/approve-leave", maintenance(authMiddleware(adminOnly(http.HandlerFunc(visitHandler.Decide)))))
	mux.Handle("/api/generate-qr-token", authMiddleware(adminOnly(http.HandlerFunc(qrHandler.GenerateToken))))

	// Gate endpoints (maintenance-gated verification)
	mux.Handle("/api/verify-qr", maintenance(authMiddleware(gateStaff(http.HandlerFunc(qrHandler.Verify)))))
	mux.Handle("/api/check-in", authMiddleware(gateStaff(http.HandlerFunc(qrHandler.CheckIn))))

	// Client visitor passes
	mux.Handle("/api/visitor-qr", authMiddleware(clientOnly(http.HandlerFunc(qrHandler.IssueVisitorQR))))
	mux.Handle("/api/visitor-qr/latest", authMiddleware(clientOnly(http.HandlerFunc(qrHandler.LatestVisitorQR))))

	// Task workflow
	mux.Handle("/api/assign-task", authMiddleware(adminOnly(http.HandlerFunc(taskHandler.Assign))))
	mux.Handle("/api/tasks", authMiddleware(managerOnly(http.HandlerFunc(taskHandler.List))))
	mux.Handle("/api/tasks/status", authMiddleware(managerOnly(http.HandlerFunc(taskHandler.UpdateStatus))))
	mux.Handle("/api/tasks/feedback", authMiddleware(managerOnly(http.HandlerFunc(taskHandler.Feedback))))

	// Admin user management and exports
	mux.Handle("/api/admin/users", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetUsers))))
	mux.Handle("/api/admin/users/create", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.CreateUser))))
	mux.Handle("/api/admin/users/disable", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.DisableUser))))
	mux.Handle("/api/admin/access-logs/export", authMiddleware(adminOnly(http.HandlerFunc(exportHandler.ExportAccessLogs))))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✅ Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// visitsMux dispatches /api/visits by method: POST creates, GET lists.
func visitsMux(h *handlers.VisitHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.Create(w, r)
		case http.MethodGet:
			h.List(w, r)
		default:
			http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
