package sink

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/snapshot"
)

// AlertLog appends one line per alert event to a dedicated log file, kept
// separate from the main log so on-call can tail just the alerts.
type AlertLog struct {
	logger *log.Logger
	file   *os.File
}

func NewAlertLog(path string) (*AlertLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("alert log dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open alert log: %w", err)
	}

	return &AlertLog{
		logger: log.New(f, "", log.LstdFlags),
		file:   f,
	}, nil
}

func (a *AlertLog) Close() error {
	return a.file.Close()
}

func (a *AlertLog) Publish(_ context.Context, _ snapshot.Snapshot, events []monitor.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case monitor.EventAlertOpened:
			a.logger.Printf("ALERT url=%s failures=%d status=%d reason=%q episode=%s",
				ev.URL, ev.ConsecutiveFailures, ev.StatusCode, ev.Reason, ev.EpisodeID)
		case monitor.EventAlertClosed:
			a.logger.Printf("RECOVERY url=%s downtime=%s episode=%s",
				ev.URL, ev.Downtime.Round(time.Second), ev.EpisodeID)
		}
	}
}
