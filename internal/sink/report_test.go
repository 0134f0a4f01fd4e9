package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"server-health-monitor/internal/snapshot"
)

func TestReportWritesSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "report.json")
	r := NewReport(path)

	down := "2026-08-25T09:00:00Z"
	snap := snapshot.Snapshot{
		All: []snapshot.EndpointDTO{
			{URL: "https://a.example.com", Up: true, TotalChecks: 10, TotalFailures: 1},
			{URL: "https://b.example.com", Up: false, AlertOpen: true, DownSince: &down, TotalChecks: 10, TotalFailures: 4},
		},
	}

	r.Publish(context.Background(), snap, nil)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		TotalChecks   int64    `json:"total_checks"`
		TotalFailures int64    `json:"total_failures"`
		FailureRate   string   `json:"failure_rate"`
		Monitored     int      `json:"monitored_urls"`
		OpenAlerts    []string `json:"open_alerts"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}

	if doc.TotalChecks != 20 || doc.TotalFailures != 5 {
		t.Fatalf("totals=%d/%d, want 20/5", doc.TotalChecks, doc.TotalFailures)
	}
	if doc.FailureRate != "25.00%" {
		t.Fatalf("FailureRate=%q", doc.FailureRate)
	}
	if doc.Monitored != 2 {
		t.Fatalf("Monitored=%d", doc.Monitored)
	}
	if len(doc.OpenAlerts) != 1 || doc.OpenAlerts[0] != "https://b.example.com" {
		t.Fatalf("OpenAlerts=%v", doc.OpenAlerts)
	}
}

func TestReportOverwritesPreviousCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r := NewReport(path)

	r.Publish(context.Background(), snapshot.Snapshot{
		All: []snapshot.EndpointDTO{{URL: "https://a.example.com", TotalChecks: 1}},
	}, nil)
	r.Publish(context.Background(), snapshot.Snapshot{
		All: []snapshot.EndpointDTO{{URL: "https://a.example.com", TotalChecks: 2}},
	}, nil)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		TotalChecks int64 `json:"total_checks"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.TotalChecks != 2 {
		t.Fatalf("TotalChecks=%d, want latest cycle's 2", doc.TotalChecks)
	}
}
