package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/acme-corp/data-pipeline/app/capture"
	"github.com/acme-corp/data-pipeline/app/config"
	"github.com/acme-corp/data-pipeline/app/retry"
)

// FetchDynamicTask captures one snapshot of a real-time feed and drops the
// raw protobuf payload into the feed's current capture folder. Every fetch
// is kept; deduplication happens downstream during transform and load.
type FetchDynamicTask struct {
	Task
	Feed       config.DynamicFeed
	rotator    *capture.Rotator
	httpClient *http.Client
	userAgent  string
}

func NewFetchDynamicTask(feed config.DynamicFeed, rotator *capture.Rotator, httpClient *http.Client, userAgent string) *FetchDynamicTask {
	return &FetchDynamicTask{
		Task:       NewTask(TaskTypeFetchDynamic, feed.Key),
		Feed:       feed,
		rotator:    rotator,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (t *FetchDynamicTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var data []byte
	err := retry.DefaultPolicy().Do(ctx, "fetch dynamic feed", func(ctx context.Context) error {
		var fetchErr error
		data, fetchErr = fetchURL(ctx, t.httpClient, t.Feed.URL, t.userAgent)
		return fetchErr
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	folder, err := t.rotator.CurrentFolder(t.FeedKey)
	if err != nil {
		return fmt.Errorf("failed to resolve capture folder: %w", err)
	}

	name := fmt.Sprintf("%s_%s.pb", t.FeedKey, time.Now().UTC().Format("20060102150405"))
	path := filepath.Join(folder, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write capture file: %w", err)
	}

	slog.Info("Task completed",
		"type", "FetchDynamic",
		"feed", t.FeedKey,
		"duration", t.GetDuration(),
		"file", path,
		"bytes", len(data))

	return nil
}

func fetchURL(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
