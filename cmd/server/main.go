package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/events"
	"github.com/yourorg/libris/internal/featureflags"
	"github.com/yourorg/libris/internal/handler"
	"github.com/yourorg/libris/internal/infrastructure/logger"
	"github.com/yourorg/libris/internal/infrastructure/redis"
	"github.com/yourorg/libris/internal/migrate"
	"github.com/yourorg/libris/internal/observability/metrics"
	"github.com/yourorg/libris/internal/observability/tracing"
	"github.com/yourorg/libris/internal/repository"
	"github.com/yourorg/libris/internal/security/audit"
	"github.com/yourorg/libris/internal/security/auth"
	"github.com/yourorg/libris/internal/security/middleware"
	"github.com/yourorg/libris/internal/security/ratelimit"
	"github.com/yourorg/libris/internal/service"
	"github.com/yourorg/libris/internal/worker"
	"github.com/yourorg/libris/pkg/cache"
	"github.com/yourorg/libris/pkg/config"
	"github.com/yourorg/libris/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting libris server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "libris", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrate.Up(ctx, pool.GetDB()); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories
	db := pool.GetDB()
	authorRepo := repository.NewPostgresAuthorRepository(db, log)
	bookRepo := repository.NewPostgresBookRepository(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	loanRepo := repository.NewPostgresLoanRepository(db, log)

	// Services
	hub := events.NewHub()
	defer hub.Close()

	authorService := service.NewAuthorService(authorRepo, cache.New(), log)
	bookService := service.NewCachedBookService(
		service.NewBookService(bookRepo, log),
		redisClient,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		log,
	)
	userService := service.NewUserService(userRepo, log)
	loanService := service.NewLoanService(loanRepo, userRepo, bookService, hub, cfg.LoanPeriodDays, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "libris", time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	authService := service.NewAuthService(userService, userRepo, tokenManager, log)

	if featureflags.Enabled("demo_seed") {
		seedDemoData(ctx, log, authService, bookService)
	}

	// Handlers
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	auditLogger := audit.NewLogger(log)

	authorHandler := handler.NewAuthorHandler(authorService, log, cfg.BulkMaxItems)
	bookHandler := handler.NewBookHandler(bookService, log, cfg.BulkMaxItems, cfg.DefaultPageSize, cfg.MaxPageSize)
	userHandler := handler.NewUserHandler(userService, authService, rateLimiter, log, cfg.DefaultPageSize, cfg.MaxPageSize)
	loanHandler := handler.NewLoanHandler(loanService, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)
	activityHandler := handler.NewActivityHandler(hub, log, cfg.CORSAllowedOrigins)

	requireStaff := middleware.RequireStaff(auditLogger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users/register", userHandler.Register)
	mux.HandleFunc("POST /api/users/login", userHandler.Login)
	mux.HandleFunc("GET /api/users", userHandler.List)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("POST /api/users", userHandler.Create)
	mux.HandleFunc("PUT /api/users/{id}", userHandler.Update)
	mux.Handle("DELETE /api/users/{id}", requireStaff(http.HandlerFunc(userHandler.Delete)))

	mux.HandleFunc("GET /api/authors", authorHandler.List)
	mux.HandleFunc("GET /api/authors/{id}", authorHandler.Get)
	mux.HandleFunc("POST /api/authors", authorHandler.Create)
	mux.HandleFunc("POST /api/authors/bulk", authorHandler.CreateBulk)
	mux.HandleFunc("PUT /api/authors/{id}", authorHandler.Update)
	mux.Handle("DELETE /api/authors/{id}", requireStaff(http.HandlerFunc(authorHandler.Delete)))

	mux.HandleFunc("GET /api/books", bookHandler.List)
	mux.HandleFunc("GET /api/books/{id}", bookHandler.Get)
	mux.HandleFunc("POST /api/books", bookHandler.Create)
	mux.HandleFunc("POST /api/books/bulk", bookHandler.CreateBulk)
	mux.HandleFunc("PUT /api/books/{id}", bookHandler.Update)
	mux.Handle("DELETE /api/books/{id}", requireStaff(http.HandlerFunc(bookHandler.Delete)))

	mux.HandleFunc("GET /api/loans", loanHandler.List)
	mux.HandleFunc("GET /api/loans/{id}", loanHandler.Get)
	mux.HandleFunc("POST /api/loans/borrow", loanHandler.Borrow)
	mux.HandleFunc("POST /api/loans/return/{id}", loanHandler.Return)
	mux.HandleFunc("PUT /api/loans/{id}", loanHandler.Update)
	mux.Handle("DELETE /api/loans/{id}", requireStaff(http.HandlerFunc(loanHandler.Delete)))

	mux.Handle("GET /ws/activity", activityHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> rate limit -> JWT ->
	// audit -> deadline -> content type -> CORS -> mux
	chained := middleware.RateLimitMiddleware(rateLimiter, log)(
		middleware.JWTMiddleware(tokenManager, log)(
			middleware.AuditMiddleware(auditLogger)(
				middleware.TimeoutMiddleware(time.Duration(cfg.RequestTimeoutSeconds) * time.Second)(
					middleware.ValidateJSONContentType(log)(handlerWithCORS),
				),
			),
		),
	)
	rootHandler := withRequestID(metrics.HTTPMetricsMiddleware(chained), log)
	rootHandler = otelhttp.NewHandler(rootHandler, "libris")

	// Background overdue scanner
	overdueWorker := worker.NewOverdueWorker(loanRepo, log, time.Duration(cfg.OverdueScanIntervalMinutes)*time.Minute)
	go overdueWorker.Start(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket activity feed writes past any fixed deadline
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("loan_period_days", cfg.LoanPeriodDays),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop overdue scanner
	rateLimiter.Stop()
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers
// for traceability.
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		ctx = context.WithValue(ctx, audit.RequestIDKey, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// seedDemoData creates a demo member plus a small catalog when the
// FLAG_DEMO_SEED flag is set. Errors are logged and ignored; reruns hit
// the unique email constraint and simply skip.
func seedDemoData(ctx context.Context, log *slog.Logger, authService *service.AuthService, books handler.BookService) {
	log.Info("seeding demo data")

	demoUser := &domain.User{
		Name:    "Demo",
		Surname: "Reader",
		Email:   "demo@libris.local",
		City:    "Springfield",
	}
	if _, err := authService.Register(ctx, demoUser, "demo1234"); err != nil {
		log.Warn("demo user not created", slog.String("error", err.Error()))
		return
	}

	catalog := []*domain.Book{
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", PublicationYear: 1937, ISBN: "978-0-261-10221-7"},
		{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965, ISBN: "978-0-441-01359-3"},
		{Title: "Snow Crash", Author: "Neal Stephenson", PublicationYear: 1992, ISBN: "978-0-553-38095-8"},
	}
	if _, err := books.CreateMany(ctx, catalog, len(catalog)); err != nil {
		log.Warn("demo catalog not created", slog.String("error", err.Error()))
	}
}
