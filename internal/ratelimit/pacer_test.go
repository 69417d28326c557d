package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestPacerDisabled(t *testing.T) {
	p := NewPacer(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("disabled pacer blocked for %s", elapsed)
	}
}

func TestPacerFirstRequestImmediate(t *testing.T) {
	p := NewPacer(time.Hour)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first request waited %s", elapsed)
	}
}

func TestPacerSpacesRequests(t *testing.T) {
	interval := 20 * time.Millisecond
	p := NewPacer(interval)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// First is immediate, the next two wait an interval each.
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("3 requests took %s, want at least %s", elapsed, 2*interval)
	}
}

func TestPacerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewPacer(time.Hour).Wait(ctx); err == nil {
		t.Error("cancelled context not reported with pacing enabled")
	}
	if err := NewPacer(0).Wait(ctx); err == nil {
		t.Error("cancelled context not reported with pacing disabled")
	}
}

func TestIsThrottled(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusForbidden, 509} {
		if !IsThrottled(code) {
			t.Errorf("IsThrottled(%d) = false", code)
		}
	}
	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		if IsThrottled(code) {
			t.Errorf("IsThrottled(%d) = true", code)
		}
	}
}
