package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stepacademy/course-access/internal"
	"github.com/stepacademy/course-access/internal/audit"
	auditpg "github.com/stepacademy/course-access/internal/audit/postgres"
	"github.com/stepacademy/course-access/internal/auth"
	authpg "github.com/stepacademy/course-access/internal/auth/postgres"
	"github.com/stepacademy/course-access/internal/core/events"
	"github.com/stepacademy/course-access/internal/entitlement"
	entitlementpg "github.com/stepacademy/course-access/internal/entitlement/postgres"
	"github.com/stepacademy/course-access/internal/notification"
	notificationpg "github.com/stepacademy/course-access/internal/notification/postgres"
	"github.com/stepacademy/course-access/internal/payment"
	"github.com/stepacademy/course-access/internal/product"
	productpg "github.com/stepacademy/course-access/internal/product/postgres"
	"github.com/stepacademy/course-access/internal/sweeper"
	"github.com/stepacademy/course-access/internal/transport"
	"github.com/stepacademy/course-access/internal/transport/middleware"
	"github.com/stepacademy/course-access/internal/transport/rest"
	"github.com/stepacademy/course-access/internal/user"
	userpg "github.com/stepacademy/course-access/internal/user/postgres"
	"github.com/stepacademy/course-access/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Router  *chi.Mux
	Sweeper *sweeper.Sweeper
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := deps.Sweeper.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start expiry sweeper: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Sweeper.Stop()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Observability.Logging.Format == "json" {
		logger.Init("production")
	} else {
		logger.Init("development")
	}
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	// Repositories
	auditRepo := auditpg.NewAuditRepository(gormDB)
	productRepo := productpg.NewProductRepository(gormDB)
	entitlementRepo := entitlementpg.NewEntitlementRepository(gormDB)
	notificationRepo := notificationpg.NewNotificationRepository(gormDB)
	userRepo := userpg.NewUserRepository(gormDB)
	authRepo := authpg.NewRepository(gormDB)

	// Services
	auditService := audit.NewService(auditRepo, log)
	productService := product.NewService(productRepo, log)

	eventBus := events.NewEventBus(log)
	notificationService := notification.NewService(notificationRepo, notification.NewInAppSender(), log)
	notificationService.SubscribeToBus(eventBus)

	engine := entitlement.NewService(entitlementRepo, productService, auditService, eventBus, log)

	tokenGenerator := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGenerator, auditService, log, config.Security.BCryptCost)

	userService := user.NewService(userRepo, authService, auditService, engine, notificationService, user.TrialPolicy{
		ProductID: config.Trial.ProductID,
		Days:      config.Trial.Days,
		Units:     config.Trial.Units,
	}, log)

	// Handlers
	baseHandler := transport.NewBaseHandler(log)
	rbac := auth.NewRBACAuthorization(&auth.DefaultPermissionChecker{}, auditService, log)

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(authService),
		RBAC:         rbac,
		User:         user.NewHandler(baseHandler, userService),
		Product:      product.NewHandler(baseHandler, productService),
		Entitlement:  entitlement.NewHandler(baseHandler, engine),
		Audit:        audit.NewHandler(baseHandler, auditService),
		Notification: notification.NewHandler(baseHandler, notificationService),
		Webhook: payment.NewWebhookHandler(
			baseHandler,
			engine,
			productService,
			config.Webhook.Secret,
			config.Webhook.DefaultAccessDays,
			log,
		),
	}

	router := chi.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))

	var allowedOrigins []string
	for _, o := range strings.Split(config.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}

	rest.RegisterAllRoutes(router, db.DB, handlers, allowedOrigins, config.Observability.Metrics.Enabled, log)

	return &Dependencies{
		Config:  config,
		DB:      db,
		Router:  router,
		Sweeper: sweeper.New(engine, config.Sweep.Schedule, log),
		Logger:  log,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm wraps the existing connection pool; gorm never opens its own.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
