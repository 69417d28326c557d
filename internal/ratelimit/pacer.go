package ratelimit

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out upstream requests. GSI asks bulk downloaders to keep a
// courtesy interval between tile fetches, so the download loop waits on the
// pacer before every request.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer that releases one request per interval. The first
// request goes out immediately. A zero or negative interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	p := &Pacer{}
	if interval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return p
}

// Wait blocks until the next request may go out, or the context is done.
// With pacing disabled it only reports context cancellation, so callers can
// use it as their per-iteration cancellation point either way.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// IsThrottled reports whether a response status indicates the upstream is
// rate limiting us rather than missing the tile.
func IsThrottled(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusForbidden ||
		statusCode == 509 // Bandwidth Limit Exceeded
}
