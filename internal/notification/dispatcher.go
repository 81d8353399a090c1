package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Job is a single lifecycle notification to deliver downstream.
type Job struct {
	EventID       string
	EventType     string
	TransactionID int64
	UserID        int64
	Payload       map[string]interface{}
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {

			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "event_id", job.EventID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Dispatcher fans lifecycle notifications out to a webhook endpoint through a
// bounded worker pool. Delivery is best effort; a full queue drops the job
// rather than blocking the caller.
type Dispatcher struct {
	webhookURL     string
	apiKey         string
	requestTimeout time.Duration
	logger         *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Config struct {
	WebhookURL     string
	APIKey         string
	RequestTimeout time.Duration
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
}

func NewDispatcher(config Config, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	requestTimeout := config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		webhookURL:     config.WebhookURL,
		apiKey:         config.APIKey,
		requestTimeout: requestTimeout,
		logger:         logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {

		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.deliver)
		}

		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	d.wg.Add(1)
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:

			select {
			case jobChannel := <-d.workerPool:

				select {
				case jobChannel <- job:

				case <-d.ctx.Done():
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}

// Enqueue queues a notification for asynchronous delivery.
func (d *Dispatcher) Enqueue(job Job) error {
	select {
	case d.jobQueue <- job:
		d.logger.Debug("notification queued",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("notification queue full, dropping job",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"queue_capacity", cap(d.jobQueue))
		return fmt.Errorf("notification queue full")
	}
}

func (d *Dispatcher) deliver(job Job) {
	if d.webhookURL == "" {
		d.logger.Debug("no webhook configured, skipping notification", "event_id", job.EventID)
		return
	}

	payload := map[string]interface{}{
		"event_id":       job.EventID,
		"event_type":     job.EventType,
		"transaction_id": job.TransactionID,
		"user_id":        job.UserID,
		"data":           job.Payload,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("failed to marshal notification payload", "error", err, "event_id", job.EventID)
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		d.logger.Error("failed to create notification request", "error", err, "event_id", job.EventID)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("X-API-Key", d.apiKey)
	}

	client := &http.Client{Timeout: d.requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		d.logger.Error("notification delivery failed",
			"error", err,
			"event_id", job.EventID,
			"event_type", job.EventType)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.logger.Info("notification delivered",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"status_code", resp.StatusCode)
	} else {
		d.logger.Warn("notification endpoint returned error",
			"event_id", job.EventID,
			"event_type", job.EventType,
			"status_code", resp.StatusCode)
	}
}
