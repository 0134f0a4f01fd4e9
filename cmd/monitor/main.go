package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server-health-monitor/internal/config"
	"server-health-monitor/internal/handlers"
	"server-health-monitor/internal/hub"
	"server-health-monitor/internal/monitor"
	"server-health-monitor/internal/sink"
	"server-health-monitor/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to config.yaml")
	once := flag.Bool("once", false, "run exactly one check cycle and exit")
	flag.Parse()

	godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := monitor.NewHTTPClient(monitor.HTTPClientConfig{
		Timeout:         cfg.Monitoring.ProbeTimeoutDur + 5*time.Second,
		UserAgent:       cfg.Monitoring.UserAgent,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	})

	var sinks sink.Multi

	alertLog, err := sink.NewAlertLog(cfg.Reporting.AlertLogFile)
	if err != nil {
		log.Printf("alert log disabled: %v", err)
	} else {
		defer alertLog.Close()
		sinks = append(sinks, alertLog)
	}

	sinks = append(sinks, sink.NewReport(cfg.Reporting.ReportFile))

	// Database: optional. Without DATABASE_URL the monitor runs in-memory
	// only and the uptime API is unavailable.
	var dbpool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		poolCfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Fatalf("failed to parse db config: %v", err)
		}
		// Supabase/PgBouncer (transaction pooling) rejects prepared statements.
		poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			log.Fatalf("failed to create db pool: %v", err)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(ctx); err != nil {
			log.Fatalf("database ping failed: %v", err)
		}

		recorder := sink.NewRecorder(dbpool)
		if err := recorder.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		sinks = append(sinks, recorder)
	} else {
		log.Printf("DATABASE_URL not set; running without history persistence")
	}

	// Telegram alerts: optional.
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("invalid TELEGRAM_CHAT_ID: %v", err)
		}
		tbot, err := bot.New(token)
		if err != nil {
			log.Fatalf("telegram bot init failed: %v", err)
		}
		sinks = append(sinks, sink.NewTelegram(tbot, chatID))
	}

	schedCfg := monitor.SchedulerConfig{
		AlertThreshold:      cfg.Monitoring.AlertThreshold,
		NormalInterval:      cfg.Monitoring.NormalIntervalDur,
		AcceleratedInterval: cfg.Monitoring.AcceleratedIntervalDur,
		Workers:             cfg.Monitoring.Workers,
	}

	if *once {
		sched := monitor.NewScheduler(schedCfg, client, toMonitorEndpoints(cfg.Endpoints), sinks...)
		if err := sched.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal(err)
		}
		return
	}

	eventHub := hub.New(nil)
	go eventHub.Run()
	sinks = append(sinks, sink.NewStream(eventHub))

	sched := monitor.NewScheduler(schedCfg, client, toMonitorEndpoints(cfg.Endpoints), sinks...)

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot.Get().All); err != nil {
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})
	r.Get("/ws/events", eventHub.HandleConnect)

	if dbpool != nil {
		h := handlers.New(dbpool)
		r.Get("/uptime", h.GetUptime)
		r.Get("/uptime/all", h.GetUptimeAll)
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	go func() {
		log.Printf("api: listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server failed: %v", err)
		}
	}()

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("scheduler stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}
}

func toMonitorEndpoints(ce []config.Endpoint) []monitor.Endpoint {
	out := make([]monitor.Endpoint, 0, len(ce))
	for _, e := range ce {
		healthy := make(map[int]struct{}, len(e.HealthyStatusCodes))
		for _, c := range e.HealthyStatusCodes {
			healthy[c] = struct{}{}
		}

		out = append(out, monitor.Endpoint{
			URL:                e.URL,
			Timeout:            e.TimeoutDur,
			HealthyStatusCodes: healthy,
		})
	}
	return out
}
