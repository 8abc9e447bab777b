package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/DavidDevlo/FINTide/src/config"
	"github.com/DavidDevlo/FINTide/src/database"
	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/handlers"
	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/security"
	"github.com/DavidDevlo/FINTide/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("FINTide backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	db, err := database.InitDB(config.Cfg.DatabasePath)
	if err != nil {
		logger.L.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.EnsureSchema(db); err != nil {
		logger.L.Error("Failed to prepare database schema", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Database initialized successfully.")

	bus := events.NewBus()
	defer bus.Close()

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	userService := services.NewUserService(db, bus)
	subscriptionService := services.NewSubscriptionService(db, bus)
	movementService := services.NewMovementService(db, bus)
	goalService := services.NewGoalService(db, bus)
	cardService := services.NewCardService(db, bus)
	summaryService := services.NewSummaryService(db, bus, config.Cfg.SummaryCacheExpiry)
	defer summaryService.Close()

	notifier := services.NewNotifier()
	reminderScheduler := services.NewReminderScheduler(db, bus, notifier,
		config.Cfg.ReminderHourLocal, config.Cfg.ReminderLeadDays)
	if err := reminderScheduler.Start(); err != nil {
		logger.L.Error("Failed to start reminder scheduler", "error", err)
		os.Exit(1)
	}
	defer reminderScheduler.Stop()

	handlers.InitializeGoogleOAuthConfig()

	userHandler := handlers.NewUserHandler(db, authService, userService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	movementHandler := handlers.NewMovementHandler(movementService)
	goalHandler := handlers.NewGoalHandler(goalService)
	cardHandler := handlers.NewCardHandler(cardService)
	summaryHandler := handlers.NewSummaryHandler(summaryService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public routes: the gate endpoints the client needs before it holds a
	// token.
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/flow-step", userHandler.HandleFlowStep)
	apiRouter.HandleFunc("GET /api/auth/google/login", userHandler.HandleGoogleLogin)
	apiRouter.HandleFunc("GET /api/auth/google/callback", userHandler.HandleGoogleCallback)

	csrfProtection := handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)

	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /register", userHandler.HandleRegister)
	authActionRouter.HandleFunc("POST /set-pin", userHandler.HandleSetPin)
	authActionRouter.HandleFunc("POST /unlock", userHandler.HandleUnlock)
	authActionRouter.HandleFunc("POST /refresh", userHandler.HandleRefreshToken)
	authActionRouter.HandleFunc("POST /logout", userHandler.HandleLogout)
	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", csrfProtection(authActionRouter)))

	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(handler))
	}

	apiRouter.Handle("GET /api/user/profile", applyCsrfAndAuth(userHandler.HandleProfile))
	apiRouter.Handle("GET /api/summary", applyCsrfAndAuth(summaryHandler.HandleGetSummary))

	apiRouter.Handle("POST /api/subscriptions", applyCsrfAndAuth(subscriptionHandler.HandleCreate))
	apiRouter.Handle("GET /api/subscriptions", applyCsrfAndAuth(subscriptionHandler.HandleList))
	apiRouter.Handle("GET /api/subscriptions/due-soon", applyCsrfAndAuth(subscriptionHandler.HandleDueSoon))
	apiRouter.Handle("GET /api/subscriptions/{id}", applyCsrfAndAuth(subscriptionHandler.HandleGet))
	apiRouter.Handle("PUT /api/subscriptions/{id}", applyCsrfAndAuth(subscriptionHandler.HandleUpdate))
	apiRouter.Handle("POST /api/subscriptions/{id}/pay", applyCsrfAndAuth(subscriptionHandler.HandlePay))
	apiRouter.Handle("POST /api/subscriptions/{id}/cancel", applyCsrfAndAuth(subscriptionHandler.HandleCancel))
	apiRouter.Handle("POST /api/subscriptions/{id}/reactivate", applyCsrfAndAuth(subscriptionHandler.HandleReactivate))
	apiRouter.Handle("DELETE /api/subscriptions/{id}", applyCsrfAndAuth(subscriptionHandler.HandleDelete))

	apiRouter.Handle("POST /api/movements", applyCsrfAndAuth(movementHandler.HandleCreate))
	apiRouter.Handle("GET /api/movements", applyCsrfAndAuth(movementHandler.HandleList))
	apiRouter.Handle("GET /api/movements/{id}", applyCsrfAndAuth(movementHandler.HandleGet))
	apiRouter.Handle("PUT /api/movements/{id}", applyCsrfAndAuth(movementHandler.HandleUpdate))
	apiRouter.Handle("PATCH /api/movements/{id}/amount", applyCsrfAndAuth(movementHandler.HandleSetAmount))
	apiRouter.Handle("DELETE /api/movements/{id}", applyCsrfAndAuth(movementHandler.HandleDelete))

	apiRouter.Handle("POST /api/goals", applyCsrfAndAuth(goalHandler.HandleCreate))
	apiRouter.Handle("GET /api/goals", applyCsrfAndAuth(goalHandler.HandleList))
	apiRouter.Handle("GET /api/goals/{id}", applyCsrfAndAuth(goalHandler.HandleGet))
	apiRouter.Handle("PUT /api/goals/{id}", applyCsrfAndAuth(goalHandler.HandleRename))
	apiRouter.Handle("PATCH /api/goals/{id}/amount", applyCsrfAndAuth(goalHandler.HandleSetAmount))
	apiRouter.Handle("POST /api/goals/{id}/add", applyCsrfAndAuth(goalHandler.HandleAddAmount))
	apiRouter.Handle("DELETE /api/goals/{id}", applyCsrfAndAuth(goalHandler.HandleDelete))

	apiRouter.Handle("POST /api/cards", applyCsrfAndAuth(cardHandler.HandleCreate))
	apiRouter.Handle("GET /api/cards", applyCsrfAndAuth(cardHandler.HandleList))
	apiRouter.Handle("GET /api/cards/{id}", applyCsrfAndAuth(cardHandler.HandleGet))
	apiRouter.Handle("PUT /api/cards/{id}", applyCsrfAndAuth(cardHandler.HandleSetMeta))
	apiRouter.Handle("POST /api/cards/{id}/default", applyCsrfAndAuth(cardHandler.HandleSetDefault))
	apiRouter.Handle("DELETE /api/cards/{id}", applyCsrfAndAuth(cardHandler.HandleDelete))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "FINTide backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
