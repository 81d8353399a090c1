package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/event-ticketing/internal/core/events"
	"github.com/frahmantamala/event-ticketing/internal/notification"
	"github.com/frahmantamala/event-ticketing/internal/transaction"
	transactionPostgres "github.com/frahmantamala/event-ticketing/internal/transaction/postgres"
	"github.com/frahmantamala/event-ticketing/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage background workers: the expiry sweeper and the notification dispatcher.`,
}

// Sweeper worker command
var sweeperWorkerCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Start the transaction expiry sweeper",
	Long:  `Start the background sweeper that expires overdue payments and cancels overdue organizer decisions`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweeperWorker()
	},
}

// Notification worker command
var notificationWorkerCmd = &cobra.Command{
	Use:   "notification",
	Short: "Start notification worker pool",
	Long:  `Start the notification worker pool for delivering lifecycle webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startNotificationWorker()
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
	apiKey         string
	webhookURL     string
	sweepInterval  time.Duration
	sweepBatchSize int
)

func startSweeperWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.LoggerWrapper()

	gormDB, err := initGormDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	interval := config.Sweeper.Interval
	if sweepInterval > 0 {
		interval = sweepInterval
	}
	batchSize := config.Sweeper.BatchSize
	if sweepBatchSize > 0 {
		batchSize = sweepBatchSize
	}

	eventBus := events.NewEventBus(lg)

	dispatcher := notification.NewDispatcher(notification.Config{
		WebhookURL:     config.Notification.WebhookURL,
		APIKey:         config.Notification.APIKey,
		RequestTimeout: config.Notification.RequestTimeout,
		MaxWorkers:     config.Notification.MaxWorkers,
		JobQueueSize:   config.Notification.JobQueueSize,
		WorkerPoolSize: config.Notification.WorkerPoolSize,
	}, lg)
	notification.NewEventHandler(dispatcher, lg).RegisterEventHandlers(eventBus)

	repo := transactionPostgres.NewTransactionRepository(gormDB)
	sweeper := transaction.NewSweeper(repo, eventBus, lg, interval, batchSize)

	ctx, cancel := context.WithCancel(context.Background())
	go sweeper.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("sweeper worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	lg.Info("received signal, shutting down sweeper worker", "signal", sig)

	cancel()
	dispatcher.Shutdown()
	lg.Info("sweeper worker shutdown complete")
}

func startNotificationWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.LoggerWrapper()

	// Use command line flags if provided, otherwise use config values
	notificationConfig := notification.Config{
		WebhookURL:     getStringFlag(webhookURL, config.Notification.WebhookURL),
		APIKey:         getStringFlag(apiKey, config.Notification.APIKey),
		RequestTimeout: config.Notification.RequestTimeout,
		MaxWorkers:     getIntFlag(maxWorkers, config.Notification.MaxWorkers),
		JobQueueSize:   getIntFlag(jobQueueSize, config.Notification.JobQueueSize),
		WorkerPoolSize: getIntFlag(workerPoolSize, config.Notification.WorkerPoolSize),
	}

	lg.Info("starting notification worker",
		"max_workers", notificationConfig.MaxWorkers,
		"job_queue_size", notificationConfig.JobQueueSize,
		"worker_pool_size", notificationConfig.WorkerPoolSize,
		"webhook_url", notificationConfig.WebhookURL)

	dispatcher := notification.NewDispatcher(notificationConfig, lg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("notification worker is running. Press Ctrl+C to stop.")

	// wait for shutdown signal
	sig := <-sigChan
	lg.Info("received signal, shutting down notification worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		dispatcher.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("notification worker pool shutdown complete")
	case <-ctx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	notificationWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")
	notificationWorkerCmd.Flags().StringVar(&apiKey, "api-key", "", "Webhook API key (overrides config)")
	notificationWorkerCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Webhook callback URL (overrides config)")

	sweeperWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "Sweep interval (overrides config)")
	sweeperWorkerCmd.Flags().IntVar(&sweepBatchSize, "batch-size", 0, "Rows per sweep pass (overrides config)")

	workerCmd.AddCommand(sweeperWorkerCmd)
	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
