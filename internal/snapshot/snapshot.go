package snapshot

import "sync/atomic"

// Snapshot is the read-only per-cycle view of the whole fleet. The scheduler
// builds a fresh one each cycle; consumers must treat it as immutable.
type Snapshot struct {
	All   []EndpointDTO
	ByURL map[string]EndpointDTO
}

// EndpointDTO is what sinks and the API see per endpoint.
type EndpointDTO struct {
	URL         string  `json:"url"`
	Up          bool    `json:"up"`
	AlertOpen   bool    `json:"alert_open"`
	DownSince   *string `json:"down_since,omitempty"`
	LastChecked string  `json:"last_checked,omitempty"`

	ConsecutiveFailures  int `json:"consecutive_failures"`
	ConsecutiveSuccesses int `json:"consecutive_successes"`

	StatusCode int    `json:"status_code"`
	LatencyMs  int64  `json:"latency_ms"`
	LastError  string `json:"last_error,omitempty"`

	TotalChecks   int64 `json:"total_checks"`
	TotalFailures int64 `json:"total_failures"`
}

var current atomic.Value // stores Snapshot

// Publish replaces the current snapshot.
func Publish(s Snapshot) {
	current.Store(s)
}

// Get returns the latest snapshot, or a zero-value one if nothing has been
// published yet.
func Get() Snapshot {
	if v := current.Load(); v != nil {
		return v.(Snapshot)
	}
	return Snapshot{}
}
