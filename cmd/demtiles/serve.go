package main

import (
	"log"

	"github.com/spf13/cobra"

	"demtiles/internal/config"
	"demtiles/internal/dem"
	"demtiles/internal/gsi"
	"demtiles/internal/infra/logger"
	"demtiles/internal/server"
	"demtiles/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve downloaded DEM tiles and elevation lookups over HTTP",
	Long: `Start an HTTP server over the downloaded tile directory:
  /tiles/{z}/{x}/{y}  - raw tile payload
  /height             - terrain elevation at ?lat=&lon=
  /runs               - journaled download runs
  /health             - health check`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}

		appLog, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), true)
		if err != nil {
			log.Fatalf("Logger error: %v", err)
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

		var journal *store.RunJournal
		if cfg.Store.SQLitePath != "" {
			journal, err = store.NewRunJournal(cfg.Store.SQLitePath)
			if err != nil {
				appLog.Warn("Run journal unavailable: %v", err)
				journal = nil
			} else {
				defer journal.Close()
			}
		}

		s := server.New(appLog, demStore, journal, cfg.Download.OutDir)
		if err := s.Start(cfg.Server.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
