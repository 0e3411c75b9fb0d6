package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type failingTask struct {
	Task
	executed chan struct{}
}

func (t *failingTask) Execute(ctx context.Context) error {
	select {
	case t.executed <- struct{}{}:
	default:
	}
	return fmt.Errorf("fetch failed")
}

func TestSchedulerStop_WithPendingRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		workerCount: 1,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 10),
	}
	s.Start()

	task := &failingTask{Task: NewTask(TaskTypeFetchDynamic, "k"), executed: make(chan struct{}, 1)}
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}

	select {
	case <-task.executed:
	case <-time.After(2 * time.Second):
		t.Fatal("Task was never executed")
	}

	// Stop must wait out the scheduled re-enqueue before closing the queue.
	s.Stop()

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}
}
