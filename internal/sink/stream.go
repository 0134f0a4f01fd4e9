package sink

import (
	"context"
	"time"

	"server-health-monitor/internal/hub"
	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/snapshot"
)

// Stream pushes alert events to websocket subscribers through the hub.
type Stream struct {
	hub *hub.Hub
}

func NewStream(h *hub.Hub) *Stream {
	return &Stream{hub: h}
}

// streamEvent is the wire shape sent to websocket clients.
type streamEvent struct {
	Kind                string  `json:"kind"`
	EpisodeID           string  `json:"episode_id"`
	URL                 string  `json:"url"`
	At                  string  `json:"at"`
	ConsecutiveFailures int     `json:"consecutive_failures,omitempty"`
	DowntimeSeconds     float64 `json:"downtime_seconds,omitempty"`
	StatusCode          int     `json:"status_code,omitempty"`
	Reason              string  `json:"reason,omitempty"`
}

func (s *Stream) Publish(_ context.Context, _ snapshot.Snapshot, events []monitor.Event) {
	for _, ev := range events {
		s.hub.Broadcast(streamEvent{
			Kind:                string(ev.Kind),
			EpisodeID:           ev.EpisodeID,
			URL:                 ev.URL,
			At:                  ev.At.UTC().Format(time.RFC3339),
			ConsecutiveFailures: ev.ConsecutiveFailures,
			DowntimeSeconds:     ev.Downtime.Seconds(),
			StatusCode:          ev.StatusCode,
			Reason:              ev.Reason,
		})
	}
}
