package dem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"demtiles/internal/gsi"
	"demtiles/internal/slippy"
	"demtiles/internal/utils/naming"
)

// StoreConfig configures the elevation store.
type StoreConfig struct {
	// TileDir is the directory holding downloaded dem_{z}_{x}_{y}.txt files.
	TileDir string

	// DefaultZoom is used when a lookup does not name a zoom level.
	DefaultZoom int

	// Client fetches tiles on demand when a lookup misses the disk.
	// Nil disables downloading; lookups then fail on missing tiles.
	Client *gsi.Client

	// MaxMemTiles bounds the in-memory cache of parsed grids.
	MaxMemTiles int
}

// Meta reports where the tile backing a lookup came from.
type Meta struct {
	Tile   slippy.Tile
	Source string // "mem-cache" | "disk" | "download"
	Size   int
}

// Store resolves elevations from downloaded DEM tiles, with a parsed-grid
// LRU in front of the disk and optional on-demand fetching behind it.
type Store struct {
	cfg StoreConfig
	mem *lru.Cache[string, *Grid]
}

// NewStore creates an elevation store over a tile directory.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.TileDir == "" {
		return nil, fmt.Errorf("dem: TileDir required")
	}
	if cfg.DefaultZoom <= 0 {
		cfg.DefaultZoom = 14
	}
	if cfg.MaxMemTiles <= 0 {
		cfg.MaxMemTiles = 64
	}

	mem, err := lru.New[string, *Grid](cfg.MaxMemTiles)
	if err != nil {
		return nil, err
	}

	return &Store{cfg: cfg, mem: mem}, nil
}

// Config returns the store configuration.
func (s *Store) Config() StoreConfig { return s.cfg }

// Height returns the terrain elevation at a WGS84 coordinate, resolved from
// memory, then disk, then (when permitted) a fresh download.
func (s *Store) Height(ctx context.Context, lat, lon float64, zoom int) (float64, Meta, error) {
	if zoom <= 0 {
		zoom = s.cfg.DefaultZoom
	}

	tile := slippy.TileForLatLon(lat, lon, zoom)
	key := tile.String()
	meta := Meta{Tile: tile}

	if g, ok := s.mem.Get(key); ok {
		meta.Source = "mem-cache"
		return s.heightFrom(g, lat, lon, &meta)
	}

	if g, err := s.loadFromDisk(tile); err == nil {
		s.mem.Add(key, g)
		meta.Source = "disk"
		return s.heightFrom(g, lat, lon, &meta)
	}

	if s.cfg.Client != nil {
		g, err := s.downloadTile(ctx, tile)
		if err != nil {
			return 0, meta, err
		}
		s.mem.Add(key, g)
		meta.Source = "download"
		return s.heightFrom(g, lat, lon, &meta)
	}

	return 0, meta, fmt.Errorf("dem: tile %s not on disk and downloading disabled", tile)
}

func (s *Store) heightFrom(g *Grid, lat, lon float64, meta *Meta) (float64, Meta, error) {
	meta.Size = g.Size
	fx, fy := slippy.Frac(lat, lon, g.Tile)
	h, ok := g.HeightAtFrac(fx, fy)
	if !ok {
		return 0, *meta, fmt.Errorf("dem: no elevation data around %.5f,%.5f", lat, lon)
	}
	return h, *meta, nil
}

func (s *Store) tilePath(tile slippy.Tile) string {
	return filepath.Join(s.cfg.TileDir, naming.TileFileName(tile.Z, tile.X, tile.Y))
}

func (s *Store) loadFromDisk(tile slippy.Tile) (*Grid, error) {
	raw, err := os.ReadFile(s.tilePath(tile))
	if err != nil {
		return nil, err
	}
	return ParseGrid(raw, tile)
}

// downloadTile fetches a missing tile and keeps a copy on disk so the next
// process start sees it too.
func (s *Store) downloadTile(ctx context.Context, tile slippy.Tile) (*Grid, error) {
	raw, err := s.cfg.Client.FetchTile(ctx, tile)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("dem: tile %s has no data upstream", tile)
	}

	g, err := ParseGrid(raw, tile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.cfg.TileDir, 0755); err == nil {
		_ = os.WriteFile(s.tilePath(tile), raw, 0644)
	}

	return g, nil
}
