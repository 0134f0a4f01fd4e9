package sink

import (
	"context"
	_ "embed"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/snapshot"
)

//go:embed schema.sql
var schemaSQL string

// Recorder persists per-cycle check results and incident lifecycles to
// Postgres. History is reporting-only: it is never read back into the
// scheduler's state, so a write failure costs a row, not correctness.
type Recorder struct {
	db *pgxpool.Pool
}

func NewRecorder(db *pgxpool.Pool) *Recorder {
	return &Recorder{db: db}
}

// EnsureSchema creates the tables if they are missing.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schemaSQL)
	return err
}

func (r *Recorder) Publish(ctx context.Context, snap snapshot.Snapshot, events []monitor.Event) {
	for _, dto := range snap.All {
		if dto.LastChecked == "" {
			continue // never probed yet
		}
		if err := r.insertCheckResult(ctx, dto); err != nil {
			log.Printf("recorder: insert check result for %s: %v", dto.URL, err)
		}
	}

	for _, ev := range events {
		if err := r.persistIncident(ctx, ev); err != nil {
			log.Printf("recorder: persist incident for %s: %v", ev.URL, err)
		}
	}
}

func (r *Recorder) insertCheckResult(ctx context.Context, dto snapshot.EndpointDTO) error {
	checkedAt, err := time.Parse(time.RFC3339, dto.LastChecked)
	if err != nil {
		checkedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO check_results
			(url, checked_at, status, status_code, latency_ms, error)
		VALUES
			($1, $2, $3, NULLIF($4, 0), $5, NULLIF($6, ''))
	`, dto.URL, checkedAt, statusText(dto), dto.StatusCode, dto.LatencyMs, dto.LastError)

	return err
}

// persistIncident opens a row when an alert opens and closes it by episode
// id when the alert closes. The unique episode_id makes replayed events
// harmless.
func (r *Recorder) persistIncident(ctx context.Context, ev monitor.Event) error {
	switch ev.Kind {
	case monitor.EventAlertOpened:
		_, err := r.db.Exec(ctx, `
			INSERT INTO incidents
				(episode_id, url, started_at, start_status_code, start_error, consecutive_failures)
			VALUES
				($1, $2, $3, NULLIF($4, 0), NULLIF($5, ''), $6)
			ON CONFLICT (episode_id) DO NOTHING
		`, ev.EpisodeID, ev.URL, ev.At, ev.StatusCode, ev.Reason, ev.ConsecutiveFailures)
		return err

	case monitor.EventAlertClosed:
		_, err := r.db.Exec(ctx, `
			UPDATE incidents
			   SET ended_at = $1,
			       downtime_seconds = $2,
			       updated_at = now()
			 WHERE episode_id = $3
			   AND ended_at IS NULL
		`, ev.At, int64(ev.Downtime.Seconds()), ev.EpisodeID)
		return err
	}
	return nil
}

func statusText(dto snapshot.EndpointDTO) string {
	switch {
	case dto.Up:
		return "UP"
	case strings.Contains(dto.LastError, "timeout"):
		return "TIMEOUT"
	default:
		return "DOWN"
	}
}
