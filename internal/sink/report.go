package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/snapshot"
)

// Report rewrites a JSON summary file after every cycle so operators (and
// dashboards scraping the file) always see the latest fleet picture.
type Report struct {
	path      string
	startedAt time.Time
}

func NewReport(path string) *Report {
	return &Report{path: path, startedAt: time.Now()}
}

type reportDoc struct {
	Timestamp       string                 `json:"timestamp"`
	RunningSeconds  float64                `json:"monitoring_duration_seconds"`
	TotalChecks     int64                  `json:"total_checks"`
	TotalFailures   int64                  `json:"total_failures"`
	FailureRate     string                 `json:"failure_rate"`
	MonitoredCount  int                    `json:"monitored_urls"`
	EndpointSummary []snapshot.EndpointDTO `json:"endpoint_summary"`
	OpenAlerts      []string               `json:"open_alerts"`
}

func (r *Report) Publish(_ context.Context, snap snapshot.Snapshot, _ []monitor.Event) {
	var checks, failures int64
	var open []string
	for _, dto := range snap.All {
		checks += dto.TotalChecks
		failures += dto.TotalFailures
		if dto.AlertOpen {
			open = append(open, dto.URL)
		}
	}

	rate := 0.0
	if checks > 0 {
		rate = float64(failures) / float64(checks) * 100
	}

	doc := reportDoc{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		RunningSeconds:  time.Since(r.startedAt).Seconds(),
		TotalChecks:     checks,
		TotalFailures:   failures,
		FailureRate:     fmt.Sprintf("%.2f%%", rate),
		MonitoredCount:  len(snap.All),
		EndpointSummary: snap.All,
		OpenAlerts:      open,
	}

	if err := r.write(doc); err != nil {
		log.Printf("report: write %s: %v", r.path, err)
	}
}

func (r *Report) write(doc reportDoc) error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so readers never see a half-written report.
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
