package naming

import "fmt"

// MetadataFileName is the descriptor written next to the tiles of a run.
const MetadataFileName = "metadata.json"

// TileFileName creates the standardized per-tile filename
// Format: dem_{z}_{x}_{y}.txt
func TileFileName(z, x, y int) string {
	return fmt.Sprintf("dem_%d_%d_%d.txt", z, x, y)
}

// BBoxString creates a human-readable bbox string for logs and journal rows
func BBoxString(south, west, north, east float64) string {
	return fmt.Sprintf("%.4f_%.4f_%.4f_%.4f", south, west, north, east)
}
