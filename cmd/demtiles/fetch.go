package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"demtiles/internal/config"
	"demtiles/internal/downloads"
	gsidl "demtiles/internal/downloads/gsi"
	"demtiles/internal/gsi"
	"demtiles/internal/infra/logger"
	"demtiles/internal/store"
	"demtiles/internal/telemetry"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download DEM tiles for the configured region",
	Long: `Download every elevation tile covering the configured bounding box
at the configured zoom level. Tiles are fetched sequentially with a fixed
courtesy delay, failed or empty tiles are recorded and skipped, and a
metadata descriptor is written when at least one tile was retrieved.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			cfg.Download.OutDir = out
		}
		if cmd.Flags().Changed("zoom") {
			cfg.Region.Zoom, _ = cmd.Flags().GetInt("zoom")
		}

		appLog, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
		if err != nil {
			log.Fatalf("Logger error: %v", err)
		}

		runFetch(cfg, appLog)
	},
}

func init() {
	fetchCmd.Flags().StringP("out", "o", "", "Output directory for tiles (overrides config)")
	fetchCmd.Flags().IntP("zoom", "z", 0, "Zoom level (overrides config)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cfg *config.Config, appLog *logger.Logger) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("GSI Post-Disaster Elevation Data Downloader")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Output directory: %s\n\n", cfg.Download.OutDir)

	// Cancel the run on Ctrl+C; already-written tiles stay on disk.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker, err := telemetry.New(cfg.Telemetry.APIKey, cfg.Telemetry.Endpoint)
	if err != nil {
		appLog.Warn("Telemetry disabled: %v", err)
		tracker, _ = telemetry.New("", "")
	}
	defer tracker.Close()

	var journal gsidl.Journal
	if cfg.Store.SQLitePath != "" {
		j, err := store.NewRunJournal(cfg.Store.SQLitePath)
		if err != nil {
			appLog.Warn("Run journal unavailable: %v", err)
		} else {
			journal = j
			defer j.Close()
		}
	}

	client := gsi.NewClient(cfg.Source.URLTemplate, cfg.Source.UserAgent, cfg.Timeout())

	downloader := gsidl.NewDownloader(
		client,
		cfg.Download.OutDir,
		journal,
		printProgress,
		func(msg string) { appLog.Info("%s", msg) },
		tracker.Track,
		cfg.RequestInterval(),
	)

	bbox := cfg.BoundingBox()
	zoom := cfg.Region.Zoom

	fmt.Printf("Downloading DEM tiles for %s (z=%d)...\n", cfg.Region.Name, zoom)
	fmt.Printf("Bounds: north=%.2f south=%.2f east=%.2f west=%.2f\n", bbox.North, bbox.South, bbox.East, bbox.West)
	fmt.Println(strings.Repeat("-", 40))

	stats, err := downloader.DownloadDEM(ctx, cfg.Region.Name, bbox, zoom)
	if err != nil {
		appLog.Error("Run aborted: %v", err)
		fmt.Printf("\nFatal error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Complete! Downloaded: %d, Failed: %d\n\n", stats.Downloaded, stats.Failed)

	descriptor := gsidl.NewRegionDescriptor(cfg.Region.Name, bbox)
	descriptor.Name = cfg.Metadata.Name
	descriptor.Description = cfg.Metadata.Description
	descriptor.Source = cfg.Metadata.Source
	descriptor.Date = cfg.Metadata.Date
	descriptor.DataType = cfg.Metadata.DataType
	descriptor.Resolution = cfg.Metadata.Resolution
	descriptor.Reference = cfg.Metadata.Reference

	written, err := gsidl.MaybeWriteDescriptor(cfg.Download.OutDir, descriptor, stats)
	if err != nil {
		appLog.Error("Failed to write metadata: %v", err)
		fmt.Printf("Failed to write metadata: %v\n", err)
		os.Exit(1)
	}

	if written {
		fmt.Println("Created metadata: metadata.json")
	} else {
		fmt.Println("Warning: No tiles were downloaded successfully.")
		fmt.Println("Check network connection and GSI service availability.")
	}
}

// printProgress renders one console line per tile outcome.
func printProgress(p downloads.DownloadProgress) {
	t := p.Outcome.Tile
	switch p.Outcome.Kind {
	case downloads.OutcomeDownloaded:
		fmt.Printf("  [%d/%d] Downloaded tile z=%d x=%d y=%d\n", p.Index, p.Total, t.Z, t.X, t.Y)
	case downloads.OutcomeEmpty:
		fmt.Printf("  [%d/%d] Empty tile z=%d x=%d y=%d\n", p.Index, p.Total, t.Z, t.X, t.Y)
	case downloads.OutcomeFailed:
		fmt.Printf("  [%d/%d] Error (z=%d x=%d y=%d): %v\n", p.Index, p.Total, t.Z, t.X, t.Y, p.Outcome.Err)
	}
}
