package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	dbpool *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Handler {
	return &Handler{dbpool: db}
}

// GetUptime returns uptime stats for one endpoint over a sliding window
// (default 24h).
func (h *Handler) GetUptime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	window, ok := parseWindow(w, r)
	if !ok {
		return
	}

	from := time.Now().UTC().Add(-window)

	var total, up int64
	err := h.dbpool.QueryRow(
		r.Context(),
		`SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'UP') AS up
		  FROM check_results
		  WHERE url = $1 AND checked_at >= $2`,
		url, from,
	).Scan(&total, &up)
	if err != nil {
		log.Printf("uptime query failed: %v", err)
		http.Error(w, "uptime query failed", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"url":          url,
		"window":       window.String(),
		"from":         from.Format(time.RFC3339),
		"total_checks": total,
		"total_up":     up,
		"uptime_pct":   uptimePct(total, up),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode uptime", http.StatusInternalServerError)
		return
	}
}

// GetUptimeAll returns uptime stats for every endpoint seen in the window.
func (h *Handler) GetUptimeAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	window, ok := parseWindow(w, r)
	if !ok {
		return
	}

	from := time.Now().UTC().Add(-window)

	rows, err := h.dbpool.Query(
		r.Context(),
		`SELECT
			url,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'UP') AS up
		  FROM check_results
		  WHERE checked_at >= $1
		  GROUP BY url
		  ORDER BY url`,
		from,
	)
	if err != nil {
		log.Printf("uptime/all query failed: %v", err)
		http.Error(w, "uptime query failed", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type entry struct {
		URL         string  `json:"url"`
		TotalChecks int64   `json:"total_checks"`
		TotalUp     int64   `json:"total_up"`
		UptimePct   float64 `json:"uptime_pct"`
	}

	entries := make([]entry, 0)
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.URL, &e.TotalChecks, &e.TotalUp); err != nil {
			log.Printf("uptime/all scan failed: %v", err)
			http.Error(w, "uptime query failed", http.StatusInternalServerError)
			return
		}
		e.UptimePct = uptimePct(e.TotalChecks, e.TotalUp)
		entries = append(entries, e)
	}

	resp := map[string]any{
		"window":       window.String(),
		"from":         from.Format(time.RFC3339),
		"endpoints":    entries,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode uptime", http.StatusInternalServerError)
		return
	}
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	window := 24 * time.Hour
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			http.Error(w, "invalid window duration", http.StatusBadRequest)
			return 0, false
		}
		window = d
	}
	return window, true
}

func uptimePct(total, up int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(up) / float64(total) * 100
}
