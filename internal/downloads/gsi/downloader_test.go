package gsi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"demtiles/internal/downloads"
	"demtiles/internal/slippy"
	"demtiles/internal/utils/naming"
)

// notoBox is small enough to cover exactly four tiles at zoom 14.
var notoBox = downloads.BoundingBox{South: 37.39, West: 136.87, North: 37.42, East: 136.90}

// fakeFetcher serves canned payloads or errors per tile.
type fakeFetcher struct {
	payloads map[slippy.Tile][]byte
	errs     map[slippy.Tile]error
	calls    []slippy.Tile
}

func (f *fakeFetcher) FetchTile(ctx context.Context, tile slippy.Tile) ([]byte, error) {
	f.calls = append(f.calls, tile)
	if err, ok := f.errs[tile]; ok {
		return nil, err
	}
	return f.payloads[tile], nil
}

func uniformFetcher(tiles []slippy.Tile, payload []byte) *fakeFetcher {
	f := &fakeFetcher{payloads: make(map[slippy.Tile][]byte), errs: make(map[slippy.Tile]error)}
	for _, t := range tiles {
		f.payloads[t] = payload
	}
	return f
}

// memJournal records journal calls for assertions.
type memJournal struct {
	runID    string
	region   string
	tiles    []downloads.TileOutcome
	finished *downloads.RunStats
}

func (m *memJournal) StartRun(region string, bbox downloads.BoundingBox, zoom int) (string, error) {
	m.runID = "run-1"
	m.region = region
	return m.runID, nil
}

func (m *memJournal) RecordTile(runID string, outcome downloads.TileOutcome) error {
	m.tiles = append(m.tiles, outcome)
	return nil
}

func (m *memJournal) FinishRun(runID string, stats downloads.RunStats) error {
	m.finished = &stats
	return nil
}

func newTestDownloader(f Fetcher, dir string, journal Journal, progress func(downloads.DownloadProgress)) *Downloader {
	return NewDownloader(f, dir, journal, progress, nil, nil, 0)
}

func TestDownloadDEMAllSuccess(t *testing.T) {
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	fetcher := uniformFetcher(tiles, []byte("1.0,2.0\n3.0,4.0\n"))

	var progress []downloads.DownloadProgress
	d := newTestDownloader(fetcher, dir, nil, func(p downloads.DownloadProgress) {
		progress = append(progress, p)
	})

	stats, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14)
	if err != nil {
		t.Fatalf("DownloadDEM: %v", err)
	}

	if stats.Downloaded != len(tiles) || stats.Failed != 0 || stats.Empty != 0 {
		t.Errorf("stats = %+v, want %d downloaded", stats, len(tiles))
	}

	// One file per coordinate, content verbatim.
	for _, tile := range tiles {
		path := filepath.Join(dir, naming.TileFileName(tile.Z, tile.X, tile.Y))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("missing tile file for %v: %v", tile, err)
			continue
		}
		if string(data) != "1.0,2.0\n3.0,4.0\n" {
			t.Errorf("tile %v content = %q", tile, data)
		}
	}

	// Progress is reported once per tile in grid order with 1-based indexes.
	if len(progress) != len(tiles) {
		t.Fatalf("got %d progress events, want %d", len(progress), len(tiles))
	}
	for i, p := range progress {
		if p.Index != i+1 || p.Total != len(tiles) {
			t.Errorf("progress[%d] = %d/%d", i, p.Index, p.Total)
		}
		if p.Outcome.Tile != tiles[i] {
			t.Errorf("progress[%d] tile = %v, want %v", i, p.Outcome.Tile, tiles[i])
		}
	}
}

func TestDownloadDEMOneFailure(t *testing.T) {
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	fetcher := uniformFetcher(tiles, []byte("elevation"))
	failed := tiles[1]
	fetcher.errs[failed] = errors.New("connection reset")

	d := newTestDownloader(fetcher, dir, nil, nil)
	stats, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14)
	if err != nil {
		t.Fatalf("DownloadDEM: %v", err)
	}

	if stats.Downloaded != len(tiles)-1 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want %d downloaded and 1 failed", stats, len(tiles)-1)
	}

	// No file for the failed coordinate.
	path := filepath.Join(dir, naming.TileFileName(failed.Z, failed.X, failed.Y))
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file exists for failed tile %v", failed)
	}
}

func TestDownloadDEMEmptyTiles(t *testing.T) {
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	fetcher := uniformFetcher(tiles, []byte("elevation"))
	empty := tiles[0]
	fetcher.payloads[empty] = nil

	d := newTestDownloader(fetcher, dir, nil, nil)
	stats, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14)
	if err != nil {
		t.Fatalf("DownloadDEM: %v", err)
	}

	// Empty is its own counter, neither success nor failure.
	if stats.Empty != 1 || stats.Failed != 0 || stats.Downloaded != len(tiles)-1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Attempted() != len(tiles) {
		t.Errorf("conservation violated: attempted %d, tiles %d", stats.Attempted(), len(tiles))
	}

	path := filepath.Join(dir, naming.TileFileName(empty.Z, empty.X, empty.Y))
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file written for empty tile %v", empty)
	}
}

func TestDownloadDEMStatConservation(t *testing.T) {
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	fetcher := uniformFetcher(tiles, []byte("x"))
	fetcher.errs[tiles[0]] = errors.New("boom")
	fetcher.payloads[tiles[1]] = nil

	d := newTestDownloader(fetcher, dir, nil, nil)
	stats, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14)
	if err != nil {
		t.Fatalf("DownloadDEM: %v", err)
	}

	if got := stats.Attempted(); got != len(tiles) {
		t.Errorf("downloaded+failed+empty = %d, want %d", got, len(tiles))
	}
	if len(fetcher.calls) != len(tiles) {
		t.Errorf("every tile must be attempted exactly once, got %d calls", len(fetcher.calls))
	}
}

func TestDownloadDEMInvalidInput(t *testing.T) {
	d := newTestDownloader(&fakeFetcher{}, t.TempDir(), nil, nil)

	inverted := downloads.BoundingBox{South: 37.42, West: 136.87, North: 37.39, East: 136.90}
	if _, err := d.DownloadDEM(context.Background(), "bad", inverted, 14); err == nil {
		t.Error("inverted box accepted")
	}

	if _, err := d.DownloadDEM(context.Background(), "bad", notoBox, -3); err == nil {
		t.Error("negative zoom accepted")
	}
}

func TestDownloadDEMIdempotentOverwrite(t *testing.T) {
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)

	first := uniformFetcher(tiles, []byte("old data"))
	d := newTestDownloader(first, dir, nil, nil)
	if _, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := uniformFetcher(tiles, []byte("new data"))
	d = newTestDownloader(second, dir, nil, nil)
	if _, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14); err != nil {
		t.Fatalf("second run: %v", err)
	}

	for _, tile := range tiles {
		path := filepath.Join(dir, naming.TileFileName(tile.Z, tile.X, tile.Y))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %v: %v", tile, err)
		}
		if string(data) != "new data" {
			t.Errorf("tile %v not overwritten: %q", tile, data)
		}
	}
}

func TestDownloadDEMJournal(t *testing.T) {
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	fetcher := uniformFetcher(tiles, []byte("x"))
	fetcher.errs[tiles[2]] = errors.New("timeout")

	journal := &memJournal{}
	d := newTestDownloader(fetcher, dir, journal, nil)
	stats, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14)
	if err != nil {
		t.Fatalf("DownloadDEM: %v", err)
	}

	if journal.region != "Noto" {
		t.Errorf("journal region = %q", journal.region)
	}
	if len(journal.tiles) != len(tiles) {
		t.Errorf("journaled %d tiles, want %d", len(journal.tiles), len(tiles))
	}
	if journal.finished == nil || *journal.finished != stats {
		t.Errorf("finished stats = %+v, want %+v", journal.finished, stats)
	}
}

func TestDownloadDEMCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	fetcher := uniformFetcher(tiles, []byte("x"))
	d := newTestDownloader(fetcher, t.TempDir(), nil, nil)

	if _, err := d.DownloadDEM(ctx, "Noto", notoBox, 14); err == nil {
		t.Error("cancelled context did not stop the run")
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetches issued after cancellation: %d", len(fetcher.calls))
	}
}

func TestDownloadDEMPersistenceFailure(t *testing.T) {
	// A directory squatting on one tile's filename makes that write fail;
	// the run keeps going and counts the tile as failed.
	dir := t.TempDir()
	tiles := slippy.TilesInBounds(notoBox.South, notoBox.West, notoBox.North, notoBox.East, 14)
	blocked := tiles[0]
	if err := os.MkdirAll(filepath.Join(dir, naming.TileFileName(blocked.Z, blocked.X, blocked.Y)), 0755); err != nil {
		t.Fatal(err)
	}

	fetcher := uniformFetcher(tiles, []byte("x"))
	d := newTestDownloader(fetcher, dir, nil, nil)

	stats, err := d.DownloadDEM(context.Background(), "Noto", notoBox, 14)
	if err != nil {
		t.Fatalf("DownloadDEM: %v", err)
	}
	if stats.Failed != 1 || stats.Downloaded != len(tiles)-1 {
		t.Errorf("stats = %+v, want 1 failed, %d downloaded", stats, len(tiles)-1)
	}
}
