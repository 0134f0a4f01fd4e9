package monitor

import (
	"context"
	"time"

	"server-health-monitor/internal/snapshot"
)

// Endpoint describes one monitored URL and how to probe it.
type Endpoint struct {
	URL     string
	Timeout time.Duration // per-probe bound

	// HealthyStatusCodes is the set of status codes considered success.
	HealthyStatusCodes map[int]struct{}
}

// Healthy reports whether code counts as success for this endpoint.
func (e Endpoint) Healthy(code int) bool {
	_, ok := e.HealthyStatusCodes[code]
	return ok
}

// Outcome is the result of a single probe. A probe either succeeds
// (Healthy=true, status in the healthy set) or fails; network errors and
// unhealthy status codes are both failures, distinguished only by Reason.
type Outcome struct {
	Healthy    bool
	StatusCode int // 0 if no response was received
	Latency    time.Duration
	At         time.Time
	Reason     string // empty on success
}

// EventKind discriminates alert lifecycle events.
type EventKind string

const (
	EventAlertOpened EventKind = "alert_opened"
	EventAlertClosed EventKind = "alert_closed"
)

// Event is emitted when an endpoint's alert opens or closes. Exactly one
// opened and at most one closed event exist per outage episode; EpisodeID
// ties the pair together.
type Event struct {
	Kind      EventKind
	EpisodeID string
	URL       string
	At        time.Time

	// Opened only.
	ConsecutiveFailures int

	// Closed only.
	Downtime time.Duration

	StatusCode int
	Reason     string
}

// Sink consumes the per-cycle snapshot and any alert events. Implementations
// are best-effort: errors are the sink's problem and must never stop the
// monitoring loop.
type Sink interface {
	Publish(ctx context.Context, snap snapshot.Snapshot, events []Event)
}
