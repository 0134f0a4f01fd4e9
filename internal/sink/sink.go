// Package sink holds the consumers of per-cycle monitoring output: database
// recorder, telegram notifier, report writer, alert log, and the websocket
// stream. All of them are best-effort; a sink failure is logged and the
// monitoring loop never notices.
package sink

import (
	"context"

	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/snapshot"
)

// Multi fans one Publish out to several sinks in order.
type Multi []monitor.Sink

func (m Multi) Publish(ctx context.Context, snap snapshot.Snapshot, events []monitor.Event) {
	for _, s := range m {
		s.Publish(ctx, snap, events)
	}
}
