package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/acme-corp/data-pipeline/app/capture"
	"github.com/acme-corp/data-pipeline/app/cfg"
	"github.com/acme-corp/data-pipeline/app/config"
	"github.com/acme-corp/data-pipeline/app/metadata"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	feeds           *config.Feeds
	rotator         *capture.Rotator
	metadataStore   *metadata.Store
	httpClient      *http.Client
	userAgent       string
	rawDir          string
	processedDir    string
	dynamicInterval time.Duration
	staticInterval  time.Duration
	dynamicEnabled  bool
	staticEnabled   bool
	workerCount     int
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	taskQueue       chan TaskInterface
}

func NewScheduler(feeds *config.Feeds, rotator *capture.Rotator, metadataStore *metadata.Store,
	httpClient *http.Client) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		feeds:           feeds,
		rotator:         rotator,
		metadataStore:   metadataStore,
		httpClient:      httpClient,
		userAgent:       cfg.UserAgent,
		rawDir:          cfg.RawDir,
		processedDir:    cfg.ProcessedDir,
		dynamicInterval: time.Duration(cfg.DynamicInterval) * time.Second,
		staticInterval:  time.Duration(cfg.StaticInterval) * time.Second,
		dynamicEnabled:  cfg.ModuleEnabled("fetch_dynamic"),
		staticEnabled:   cfg.ModuleEnabled("fetch_static"),
		workerCount:     cfg.WorkerCount,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.dynamicEnabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			ticker := time.NewTicker(s.dynamicInterval)
			defer ticker.Stop()

			s.enqueueDynamicTasks()

			for {
				select {
				case <-s.ctx.Done():
					return
				case <-ticker.C:
					s.enqueueDynamicTasks()
				}
			}
		}()
	}

	if s.staticEnabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			ticker := time.NewTicker(s.staticInterval)
			defer ticker.Stop()

			s.enqueueStaticTasks()

			for {
				select {
				case <-s.ctx.Done():
					return
				case <-ticker.C:
					s.enqueueStaticTasks()
				}
			}
		}()
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueDynamicTasks() {
	if len(s.feeds.Dynamic) == 0 {
		slog.Debug("No dynamic feeds configured")
		return
	}

	for _, feed := range s.feeds.Dynamic {
		task := NewFetchDynamicTask(feed, s.rotator, s.httpClient, s.userAgent)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue FetchDynamicTask", "feed", feed.Key, "error", err)
		}
	}
}

func (s *Scheduler) enqueueStaticTasks() {
	if len(s.feeds.Static) == 0 {
		slog.Debug("No static feeds configured")
		return
	}

	for _, feed := range s.feeds.Static {
		task := NewFetchStaticTask(feed, s.metadataStore, s.httpClient, s.rawDir, s.processedDir, s.userAgent)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue FetchStaticTask", "feed", feed.Key, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedKey(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// Tracked in the WaitGroup so Stop never closes the queue while
			// a re-enqueue is pending.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
