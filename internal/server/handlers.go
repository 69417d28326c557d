package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v5"

	"demtiles/internal/slippy"
	"demtiles/internal/utils/naming"
)

func (s *Server) handleHealth(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// handleTile serves a downloaded tile verbatim.
func (s *Server) handleTile(c *echo.Context) error {
	z, errZ := strconv.Atoi(c.Param("z"))
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errZ != nil || errX != nil || errY != nil {
		return c.String(http.StatusBadRequest, "tile coordinates must be integers")
	}

	tile, err := slippy.New(x, y, z)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	path := filepath.Join(s.tileDir, naming.TileFileName(tile.Z, tile.X, tile.Y))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.String(http.StatusNotFound, "tile not downloaded")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read tile")
	}

	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", data)
}

type heightResponse struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height"`
	Tile   string  `json:"tile"`
	Source string  `json:"source"`
}

// handleHeight resolves terrain elevation at a coordinate from the
// downloaded tiles.
func (s *Server) handleHeight(c *echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if errLat != nil || errLon != nil {
		return c.String(http.StatusBadRequest, "lat and lon query parameters are required")
	}

	zoom := 0
	if zs := c.QueryParam("zoom"); zs != "" {
		z, err := strconv.Atoi(zs)
		if err != nil {
			return c.String(http.StatusBadRequest, "zoom must be an integer")
		}
		zoom = z
	}

	h, meta, err := s.demStore.Height(c.Request().Context(), lat, lon, zoom)
	if err != nil {
		return c.String(http.StatusNotFound, err.Error())
	}

	return c.JSON(http.StatusOK, heightResponse{
		Lat:    lat,
		Lon:    lon,
		Height: h,
		Tile:   meta.Tile.String(),
		Source: meta.Source,
	})
}

func (s *Server) handleRuns(c *echo.Context) error {
	if s.journal == nil {
		return c.String(http.StatusServiceUnavailable, "run journal not configured")
	}
	runs, err := s.journal.ListRuns()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list runs")
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRun(c *echo.Context) error {
	if s.journal == nil {
		return c.String(http.StatusServiceUnavailable, "run journal not configured")
	}

	id := c.Param("id")
	run, err := s.journal.GetRun(id)
	if err != nil {
		return c.String(http.StatusNotFound, "run not found")
	}

	tiles, err := s.journal.ListTiles(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list tiles")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run":   run,
		"tiles": tiles,
	})
}
