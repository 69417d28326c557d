package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"demtiles/internal/config"
	"demtiles/internal/dem"
	"demtiles/internal/gsi"
)

// heightCmd represents the height command
var heightCmd = &cobra.Command{
	Use:   "height",
	Short: "Get terrain elevation at a location",
	Long: `Look up terrain elevation at a geographic coordinate using the
downloaded tiles, fetching the covering tile on demand when it is missing.

Examples:
  demtiles height --lat 37.40 --lon 136.89
  demtiles height --lat 37.40 --lon 136.89 --zoom 14`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}

		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		zoom, _ := cmd.Flags().GetInt("zoom")

		if lat < -90 || lat > 90 {
			log.Fatal("Latitude must be between -90 and 90")
		}
		if lon < -180 || lon > 180 {
			log.Fatal("Longitude must be between -180 and 180")
		}

		demStore, err := dem.NewStore(dem.StoreConfig{
			TileDir:     cfg.Download.OutDir,
			DefaultZoom: cfg.Region.Zoom,
			Client:      gsi.NewClient(cfg.Source.URLTemplate, cfg.Source.UserAgent, cfg.Timeout()),
			MaxMemTiles: cfg.Server.MaxMemTiles,
		})
		if err != nil {
			log.Fatalf("Store error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout()+5*time.Second)
		defer cancel()

		h, meta, err := demStore.Height(ctx, lat, lon, zoom)
		if err != nil {
			log.Fatalf("Height lookup failed: %v", err)
		}

		fmt.Printf("Elevation at %.6f, %.6f: %.2f m\n", lat, lon, h)
		fmt.Printf("Tile: %s (%s, grid %dx%d)\n", meta.Tile, meta.Source, meta.Size, meta.Size)
	},
}

func init() {
	heightCmd.Flags().Float64("lat", 0, "Latitude (required)")
	heightCmd.Flags().Float64("lon", 0, "Longitude (required)")
	heightCmd.Flags().IntP("zoom", "z", 0, "Zoom level (defaults to configured zoom)")
	heightCmd.MarkFlagRequired("lat")
	heightCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(heightCmd)
}
