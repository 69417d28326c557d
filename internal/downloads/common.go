package downloads

import (
	"fmt"
	"math"
)

// BoundingBox represents a geographic bounding box
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Constants for validation
const (
	MinZoom = 0
	MaxZoom = 18 // GSI serves dem5b up to 15; leave headroom for other XYZ sources

	MinLat = -85.051129 // Web Mercator limit
	MaxLat = 85.051129
	MinLon = -180.0
	MaxLon = 180.0
)

// Validate checks if the bounding box is valid. A box that fails here is a
// caller contract violation and aborts the run before any request is issued.
func (b BoundingBox) Validate() error {
	for name, v := range map[string]float64{
		"south": b.South, "west": b.West, "north": b.North, "east": b.East,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s bound is not a finite number", name)
		}
	}
	if b.South >= b.North {
		return fmt.Errorf("south (%f) must be less than north (%f)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%f) must be less than east (%f)", b.West, b.East)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: south=%f, north=%f", b.South, b.North)
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]: west=%f, east=%f", b.West, b.East)
	}
	return nil
}

// Center returns the geographic center of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.North + b.South) / 2, (b.East + b.West) / 2
}

// ValidateCoordinates validates zoom level and bounding box
func ValidateCoordinates(bbox BoundingBox, zoom int) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return fmt.Errorf("zoom level %d out of range [%d, %d]", zoom, MinZoom, MaxZoom)
	}
	return bbox.Validate()
}
