package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "demtiles",
	Short: "Download and serve GSI elevation tiles",
	Long: `demtiles retrieves DEM (elevation) tiles covering a configured
geographic region from the GSI tile service, stores each tile as a file
keyed by its tile coordinates, and writes a descriptor for the run.

Commands:
  fetch   - download the tiles covering the configured region
  serve   - serve downloaded tiles and elevation lookups over HTTP
  height  - look up terrain elevation at a coordinate

Configuration comes from config.yaml (or --config), with DEMTILES_*
environment variables taking precedence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default config.yaml)")
}
