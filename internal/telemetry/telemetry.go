package telemetry

import (
	"github.com/posthog/posthog-go"
)

// Tracker sends anonymous usage events to PostHog. With no API key
// configured every call is a no-op, so callers never need to nil-check.
type Tracker struct {
	client     posthog.Client
	distinctID string
}

// New creates a tracker. endpoint may be empty for the PostHog default.
func New(apiKey, endpoint string) (*Tracker, error) {
	if apiKey == "" {
		return &Tracker{}, nil
	}

	cfg := posthog.Config{}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}

	client, err := posthog.NewWithConfig(apiKey, cfg)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		client:     client,
		distinctID: "demtiles-cli",
	}, nil
}

// Track enqueues an event with the given properties.
func (t *Tracker) Track(event string, props map[string]interface{}) {
	if t == nil || t.client == nil {
		return
	}
	t.client.Enqueue(posthog.Capture{
		DistinctId: t.distinctID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes pending events.
func (t *Tracker) Close() {
	if t != nil && t.client != nil {
		t.client.Close()
	}
}
