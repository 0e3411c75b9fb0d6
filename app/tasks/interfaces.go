package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background fetch processing.
// Example usage:
//
//	scheduler := NewScheduler(feeds, rotator, metadataStore, httpClient)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
