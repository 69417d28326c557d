package gsi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"demtiles/internal/downloads"
	"demtiles/internal/utils/naming"
)

// RegionDescriptor is the provenance document written next to the tiles of a
// successful run. The shape matches what downstream conversion tooling reads.
type RegionDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Source      string            `json:"source"`
	Date        string            `json:"date"`
	Region      RegionInfo        `json:"region"`
	DataType    string            `json:"data_type"`
	Resolution  string            `json:"resolution"`
	Reference   map[string]string `json:"reference,omitempty"`
}

// RegionInfo describes the retrieved region
type RegionInfo struct {
	Name        string               `json:"name"`
	Bounds      downloads.BoundingBox `json:"bounds"`
	Coordinates CenterPoint          `json:"coordinates"`
}

// CenterPoint is the computed center of the bounding box
type CenterPoint struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
}

// NewRegionDescriptor fills in the computed region block of a descriptor.
func NewRegionDescriptor(regionName string, bbox downloads.BoundingBox) RegionDescriptor {
	lat, lon := bbox.Center()
	return RegionDescriptor{
		Region: RegionInfo{
			Name:        regionName,
			Bounds:      bbox,
			Coordinates: CenterPoint{CenterLat: lat, CenterLon: lon},
		},
	}
}

// WriteDescriptor persists the descriptor as metadata.json inside outDir,
// overwriting any previous run's descriptor.
func WriteDescriptor(outDir string, d RegionDescriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	path := filepath.Join(outDir, naming.MetadataFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// MaybeWriteDescriptor writes the descriptor only when the run downloaded at
// least one tile. It reports whether a descriptor was written.
func MaybeWriteDescriptor(outDir string, d RegionDescriptor, stats downloads.RunStats) (bool, error) {
	if stats.Downloaded == 0 {
		return false, nil
	}
	if err := WriteDescriptor(outDir, d); err != nil {
		return false, err
	}
	return true, nil
}
