package gsi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"demtiles/internal/ratelimit"
	"demtiles/internal/slippy"
)

const (
	// DEM tile endpoint of the Geospatial Information Authority of Japan.
	// dem5b carries the 5m mesh elevation data as plain-text tiles.
	DefaultURLTemplate = "https://cyberjapandata.gsi.go.jp/xyz/dem5b/{z}/{x}/{y}.txt"

	// The GSI tile service rejects requests without a browser-like client
	// identifier, so we send a conventional one.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	DefaultTimeout = 30 * time.Second
)

// Client handles communication with an XYZ elevation tile service
type Client struct {
	httpClient  *http.Client
	urlTemplate string
	userAgent   string
}

// NewClient creates a new tile client with system proxy support. Empty
// template, user agent, or zero timeout fall back to the GSI defaults.
func NewClient(urlTemplate, userAgent string, timeout time.Duration) *Client {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Use http.ProxyFromEnvironment to respect system proxy settings
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		urlTemplate: urlTemplate,
		userAgent:   userAgent,
	}
}

// TileURL expands the URL template for one tile coordinate.
func (c *Client) TileURL(tile slippy.Tile) string {
	u := c.urlTemplate
	u = strings.ReplaceAll(u, "{z}", strconv.Itoa(tile.Z))
	u = strings.ReplaceAll(u, "{x}", strconv.Itoa(tile.X))
	u = strings.ReplaceAll(u, "{y}", strconv.Itoa(tile.Y))
	return u
}

// FetchTile performs a single GET for one tile and returns the raw payload.
// A zero-length body with a success status is returned as an empty slice and
// a nil error; the caller decides how to classify it. Non-success statuses
// and transport failures are errors.
func (c *Client) FetchTile(ctx context.Context, tile slippy.Tile) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TileURL(tile), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile %s: %w", tile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if ratelimit.IsThrottled(resp.StatusCode) {
			return nil, fmt.Errorf("upstream is rate limiting (status %d), slow down and retry later", resp.StatusCode)
		}
		return nil, fmt.Errorf("tile request failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
