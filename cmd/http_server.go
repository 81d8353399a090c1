package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/event-ticketing/internal"
	"github.com/frahmantamala/event-ticketing/internal/auth"
	authPostgres "github.com/frahmantamala/event-ticketing/internal/auth/postgres"
	"github.com/frahmantamala/event-ticketing/internal/core/events"
	"github.com/frahmantamala/event-ticketing/internal/event"
	eventPostgres "github.com/frahmantamala/event-ticketing/internal/event/postgres"
	"github.com/frahmantamala/event-ticketing/internal/notification"
	"github.com/frahmantamala/event-ticketing/internal/points"
	pointsPostgres "github.com/frahmantamala/event-ticketing/internal/points/postgres"
	promotionPostgres "github.com/frahmantamala/event-ticketing/internal/promotion/postgres"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
	transactionPostgres "github.com/frahmantamala/event-ticketing/internal/transaction/postgres"
	"github.com/frahmantamala/event-ticketing/internal/transport"
	"github.com/frahmantamala/event-ticketing/internal/transport/rest"
	"github.com/frahmantamala/event-ticketing/internal/user"
	userPostgres "github.com/frahmantamala/event-ticketing/internal/user/postgres"
	"github.com/frahmantamala/event-ticketing/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
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
	Config     *internal.Config
	DB         *sqlx.DB
	GormDB     *gorm.DB
	Router     *chi.Mux
	Logger     *slog.Logger
	Sweeper    *transaction.Sweeper
	Dispatcher *notification.Dispatcher
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// In-process expiry sweeper runs alongside the API server
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go deps.Sweeper.Start(sweepCtx)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		stopSweeper()
		deps.Dispatcher.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		stopSweeper()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGormDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	appLogger := logger.LoggerWrapper()
	if appLogger == nil {
		appLogger = slog.Default()
	}

	// Event bus with webhook notification fan-out
	eventBus := events.NewEventBus(appLogger)

	dispatcher := notification.NewDispatcher(notification.Config{
		WebhookURL:     config.Notification.WebhookURL,
		APIKey:         config.Notification.APIKey,
		RequestTimeout: config.Notification.RequestTimeout,
		MaxWorkers:     config.Notification.MaxWorkers,
		JobQueueSize:   config.Notification.JobQueueSize,
		WorkerPoolSize: config.Notification.WorkerPoolSize,
	}, appLogger)
	notification.NewEventHandler(dispatcher, appLogger).RegisterEventHandlers(eventBus)

	// Repositories
	authRepo := authPostgres.NewRepository(gormDB)
	userRepo := userPostgres.NewUserRepository(gormDB)
	eventRepo := eventPostgres.NewEventRepository(gormDB)
	promoRepo := promotionPostgres.NewPromotionRepository(gormDB)
	pointsRepo := pointsPostgres.NewPointsRepository(gormDB)
	transactionRepo := transactionPostgres.NewTransactionRepository(gormDB)

	// Services
	tokenGenerator := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
	)
	authService := auth.NewService(authRepo, tokenGenerator)
	userService := user.NewService(userRepo)
	eventService := event.NewService(eventRepo, appLogger)
	pointsService := points.NewService(pointsRepo, appLogger)
	transactionService := transaction.NewService(
		transactionRepo,
		eventService,
		promoRepo,
		pointsService,
		eventBus,
		appLogger,
	)

	// Handlers
	baseHandler := transport.NewBaseHandler(appLogger)
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userService)
	eventHandler := event.NewHandler(baseHandler, eventService)
	pointsHandler := points.NewHandler(baseHandler, pointsService)
	transactionHandler := transaction.NewHandler(baseHandler, transactionService)

	sweeper := transaction.NewSweeper(
		transactionRepo,
		eventBus,
		appLogger,
		config.Sweeper.Interval,
		config.Sweeper.BatchSize,
	)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, authHandler, authService, userHandler, eventHandler, transactionHandler, pointsHandler, appLogger)

	return &Dependencies{
		Config:     config,
		Logger:     appLogger,
		DB:         db,
		GormDB:     gormDB,
		Router:     router,
		Sweeper:    sweeper,
		Dispatcher: dispatcher,
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

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGormDB opens the GORM handle used by the repositories.
func initGormDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	gormDB, err := gorm.Open(gormPostgres.Open(cfg.Source), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return gormDB, nil
}
