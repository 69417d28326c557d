package gsi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"demtiles/internal/downloads"
	"demtiles/internal/ratelimit"
	"demtiles/internal/slippy"
	"demtiles/internal/utils/naming"
)

// Fetcher performs one network fetch per tile coordinate.
// *gsi.Client satisfies this; tests substitute their own.
type Fetcher interface {
	FetchTile(ctx context.Context, tile slippy.Tile) ([]byte, error)
}

// Journal records runs and per-tile outcomes on stable storage.
type Journal interface {
	StartRun(region string, bbox downloads.BoundingBox, zoom int) (string, error)
	RecordTile(runID string, outcome downloads.TileOutcome) error
	FinishRun(runID string, stats downloads.RunStats) error
}

// Downloader handles DEM tile downloads for a bounding box
type Downloader struct {
	fetcher            Fetcher
	downloadPath       string
	journal            Journal
	progressCallback   func(downloads.DownloadProgress)
	logCallback        func(string)
	trackEventCallback func(string, map[string]interface{})
	pacer              *ratelimit.Pacer
}

// NewDownloader creates a new DEM downloader with injected dependencies.
// journal and all callbacks may be nil. requestInterval is the courtesy
// throttle between upstream requests; zero disables it (tests).
func NewDownloader(
	fetcher Fetcher,
	downloadPath string,
	journal Journal,
	progressCallback func(downloads.DownloadProgress),
	logCallback func(string),
	trackEventCallback func(string, map[string]interface{}),
	requestInterval time.Duration,
) *Downloader {
	return &Downloader{
		fetcher:            fetcher,
		downloadPath:       downloadPath,
		journal:            journal,
		progressCallback:   progressCallback,
		logCallback:        logCallback,
		trackEventCallback: trackEventCallback,
		pacer:              ratelimit.NewPacer(requestInterval),
	}
}

// emitLog emits a log message if callback is set
func (d *Downloader) emitLog(message string) {
	if d.logCallback != nil {
		d.logCallback(message)
	}
}

// emitProgress emits per-tile progress if callback is set
func (d *Downloader) emitProgress(progress downloads.DownloadProgress) {
	if d.progressCallback != nil {
		d.progressCallback(progress)
	}
}

// trackEvent tracks an analytics event if callback is set
func (d *Downloader) trackEvent(event string, properties map[string]interface{}) {
	if d.trackEventCallback != nil {
		d.trackEventCallback(event, properties)
	}
}

// DownloadDEM fetches every tile covering bbox at the given zoom level and
// persists the non-empty payloads under the download path.
//
// Tiles are attempted exactly once, sequentially, in grid order. Per-tile
// failures are classified and counted, never propagated; only invalid input
// aborts the run before the first request. The returned stats satisfy
// Downloaded+Failed+Empty == tiles attempted.
func (d *Downloader) DownloadDEM(ctx context.Context, region string, bbox downloads.BoundingBox, zoom int) (downloads.RunStats, error) {
	var stats downloads.RunStats

	if err := downloads.ValidateCoordinates(bbox, zoom); err != nil {
		return stats, fmt.Errorf("invalid coordinates: %w", err)
	}

	if err := os.MkdirAll(d.downloadPath, 0755); err != nil {
		return stats, fmt.Errorf("failed to create download directory: %w", err)
	}

	tiles := slippy.TilesInBounds(bbox.South, bbox.West, bbox.North, bbox.East, zoom)
	total := len(tiles)

	d.emitLog(fmt.Sprintf("Downloading %d DEM tiles for %s (z=%d)", total, region, zoom))
	d.emitLog(fmt.Sprintf("Bounds: %s", naming.BBoxString(bbox.South, bbox.West, bbox.North, bbox.East)))

	var runID string
	if d.journal != nil {
		id, err := d.journal.StartRun(region, bbox, zoom)
		if err != nil {
			d.emitLog(fmt.Sprintf("Journal unavailable, continuing without it: %v", err))
		} else {
			runID = id
		}
	}

	for i, tile := range tiles {
		// The pacer doubles as the cancellation point between tiles.
		if err := d.pacer.Wait(ctx); err != nil {
			return stats, err
		}

		outcome := d.fetchAndPersist(ctx, tile)
		stats.Record(outcome.Kind)

		d.emitProgress(downloads.DownloadProgress{
			Index:   i + 1,
			Total:   total,
			Outcome: outcome,
		})

		if runID != "" {
			if err := d.journal.RecordTile(runID, outcome); err != nil {
				d.emitLog(fmt.Sprintf("Failed to journal tile %s: %v", tile, err))
			}
		}
	}

	if runID != "" {
		if err := d.journal.FinishRun(runID, stats); err != nil {
			d.emitLog(fmt.Sprintf("Failed to finalize journal run: %v", err))
		}
	}

	d.emitLog(fmt.Sprintf("Complete! Downloaded: %d, Failed: %d", stats.Downloaded, stats.Failed))

	d.trackEvent("dem_download_completed", map[string]interface{}{
		"region":     region,
		"zoom":       zoom,
		"tiles":      total,
		"downloaded": stats.Downloaded,
		"failed":     stats.Failed,
		"empty":      stats.Empty,
	})

	return stats, nil
}

// fetchAndPersist performs one fetch attempt and classifies the result.
// A payload that cannot be written locally counts as a failure just like a
// transport error; the run keeps going either way.
func (d *Downloader) fetchAndPersist(ctx context.Context, tile slippy.Tile) downloads.TileOutcome {
	data, err := d.fetcher.FetchTile(ctx, tile)
	if err != nil {
		return downloads.TileOutcome{Tile: tile, Kind: downloads.OutcomeFailed, Err: err}
	}

	if len(data) == 0 {
		return downloads.TileOutcome{Tile: tile, Kind: downloads.OutcomeEmpty}
	}

	path := filepath.Join(d.downloadPath, naming.TileFileName(tile.Z, tile.X, tile.Y))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return downloads.TileOutcome{Tile: tile, Kind: downloads.OutcomeFailed, Err: fmt.Errorf("failed to persist tile: %w", err)}
	}

	return downloads.TileOutcome{Tile: tile, Kind: downloads.OutcomeDownloaded, Bytes: len(data)}
}
