package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"medicine-tracker/internal/auth"
	"medicine-tracker/internal/config"
	"medicine-tracker/internal/database"
	"medicine-tracker/internal/handlers"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/models"
	"medicine-tracker/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	// Load environment variables
	if err := loadEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", cfg.Server.Timezone, err)
	}

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize security components
	jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionDuration)
	csrfProtection := middleware.NewCSRFProtection(cfg.Security.CSRFSecret)
	rateLimiter := middleware.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)
	loginRateLimiter := middleware.NewRateLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	reminderService := services.NewReminderService(db, loc)

	// Initialize router
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.SecurityHeaders(cfg.Security.HSTSEnabled))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Server.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes (no authentication required)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware)

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		// Authentication routes
		r.Route("/api/auth", func(r chi.Router) {
			r.With(loginRateLimiter.Middleware).Post("/login", handlers.HandleLogin(db, jwtManager, cfg.Security.MaxLoginAttempts, cfg.Security.LockoutDuration))
			r.With(loginRateLimiter.Middleware).Post("/register", handlers.HandleRegister(db, jwtManager))
		})
	})

	// Protected routes (authentication required)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(rateLimiter.Middleware)
		r.Use(csrfProtection.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Get("/csrf-token", handlers.HandleCSRFToken(csrfProtection))

			// User routes
			r.Get("/auth/me", handlers.HandleGetProfile(db))
			r.Put("/auth/profile", handlers.HandleUpdateProfile(db))
			r.Post("/auth/password", handlers.HandleChangePassword(db))
			r.Post("/auth/refresh", handlers.HandleRefreshToken(db, jwtManager))
			r.Post("/auth/logout", handlers.HandleLogout())

			// Medicine routes
			r.Route("/medicines", func(r chi.Router) {
				r.Get("/", handlers.HandleListMedicines(db))
				r.Post("/", handlers.HandleCreateMedicine(db))
				r.Get("/{id}", handlers.HandleGetMedicine(db))
				r.Put("/{id}", handlers.HandleUpdateMedicine(db))
				r.Delete("/{id}", handlers.HandleDeleteMedicine(db))
			})

			// Dose routes
			r.Route("/doses", func(r chi.Router) {
				r.Get("/history", handlers.HandleGetDoseHistory(db, loc))
				r.Get("/date/{date}", handlers.HandleGetDosesByDate(db))
				r.Put("/bulk/{date}", handlers.HandleBulkUpdateDoses(db))
				r.Put("/{id}", handlers.HandleUpdateDose(db))
			})

			// Analytics routes
			r.Route("/analytics", func(r chi.Router) {
				r.Get("/adherence", handlers.HandleGetAdherence(db, loc))
				r.Get("/medicines", handlers.HandleGetMedicineAdherence(db, loc))
				r.Get("/summary", handlers.HandleGetSummary(db, loc))
				r.Get("/trends", handlers.HandleGetTrends(db, loc))
			})

			// Doctor routes (read-only cross-patient access)
			r.Route("/doctor", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleDoctor))
				r.Get("/patients", handlers.HandleListPatients(db))
				r.Get("/patients/{id}", handlers.HandleGetPatient(db))
				r.Get("/patients/{id}/medicines", handlers.HandleGetPatientMedicines(db))
				r.Get("/patients/{id}/doses", handlers.HandleGetPatientDoses(db, loc))
				r.Get("/patients/{id}/adherence", handlers.HandleGetPatientAdherence(db, loc))
				r.Get("/analytics/all-patients", handlers.HandleGetPatientsOverview(db, loc))
			})

			// Export routes
			r.Get("/export/csv", handlers.HandleExportCSV(db, loc))
			r.Get("/export/pdf", handlers.HandleExportPDF(db, loc))

			// Notification routes
			r.Get("/notifications", handlers.HandleListNotifications(db, reminderService))
			r.Put("/notifications/{id}/read", handlers.HandleMarkNotificationRead(db))
		})
	})

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server starting on http://localhost%s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// loadEnv loads environment variables from .env file
func loadEnv() error {
	data, err := os.ReadFile(".env")
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			os.Setenv(key, value)
		}
	}

	return nil
}
