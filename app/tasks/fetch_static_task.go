package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/acme-corp/data-pipeline/app/config"
	"github.com/acme-corp/data-pipeline/app/gtfs"
	"github.com/acme-corp/data-pipeline/app/metadata"
	"github.com/acme-corp/data-pipeline/app/retry"
)

// FetchStaticTask fetches one schedule resource and acts only when its
// content hash differs from the stored one. A changed resource is saved
// raw, converted to parquet under the processed root, and only then has
// its hash recorded, so a failed conversion is retried on the next pass.
type FetchStaticTask struct {
	Task
	Feed          config.StaticFeed
	metadataStore *metadata.Store
	httpClient    *http.Client
	rawDir        string
	processedDir  string
	userAgent     string
}

func NewFetchStaticTask(feed config.StaticFeed, metadataStore *metadata.Store, httpClient *http.Client,
	rawDir, processedDir, userAgent string) *FetchStaticTask {
	return &FetchStaticTask{
		Task:          NewTask(TaskTypeFetchStatic, feed.Key),
		Feed:          feed,
		metadataStore: metadataStore,
		httpClient:    httpClient,
		rawDir:        rawDir,
		processedDir:  processedDir,
		userAgent:     userAgent,
	}
}

func (t *FetchStaticTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var data []byte
	err := retry.DefaultPolicy().Do(ctx, "fetch static feed", func(ctx context.Context) error {
		var fetchErr error
		data, fetchErr = fetchURL(ctx, t.httpClient, t.Feed.URL, t.userAgent)
		return fetchErr
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if hash == t.metadataStore.Hash(t.FeedKey, t.Feed.URL) {
		slog.Debug("Static feed unchanged, skipping", "feed", t.FeedKey)
		return nil
	}

	ts := time.Now().UTC().Format("20060102150405")
	rawPath, err := t.saveRaw(data, ts)
	if err != nil {
		return fmt.Errorf("failed to save raw feed: %w", err)
	}

	if err := t.convert(rawPath, ts); err != nil {
		return fmt.Errorf("failed to convert feed: %w", err)
	}

	if err := t.metadataStore.SetHash(t.FeedKey, t.Feed.URL, hash); err != nil {
		return fmt.Errorf("failed to record content hash: %w", err)
	}

	slog.Info("Task completed",
		"type", "FetchStatic",
		"feed", t.FeedKey,
		"duration", t.GetDuration(),
		"file", rawPath,
		"bytes", len(data))

	return nil
}

func (t *FetchStaticTask) saveRaw(data []byte, ts string) (string, error) {
	dir := filepath.Join(t.rawDir, "static", t.FeedKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ext := ".zip"
	if t.Feed.Kind == config.KindCSV {
		ext = ".csv"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", t.FeedKey, ts, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (t *FetchStaticTask) convert(rawPath, ts string) error {
	switch t.Feed.Kind {
	case config.KindGTFSZip:
		outDir := filepath.Join(t.processedDir, "gtfs_"+ts)
		return gtfs.ConvertZip(rawPath, outDir)
	case config.KindCSV:
		outFile := filepath.Join(t.processedDir, "vehicle_dictionary_"+ts, "vehicle_dictionary.parquet")
		return gtfs.ConvertCSV(rawPath, outFile)
	}
	return fmt.Errorf("unknown feed kind %q", t.Feed.Kind)
}
