package monitor

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"server-health-monitor/internal/snapshot"
)

// IntervalMode selects the fleet-wide cadence for the next cycle.
type IntervalMode string

const (
	ModeNormal      IntervalMode = "normal"
	ModeAccelerated IntervalMode = "accelerated"
)

// SchedulerConfig carries everything the control loop needs. There is no
// global config: the caller builds one of these and hands it over.
type SchedulerConfig struct {
	AlertThreshold      int
	NormalInterval      time.Duration
	AcceleratedInterval time.Duration
	Workers             int
}

// Scheduler drives fixed-cadence check cycles across the whole fleet.
// It owns every EndpointState; nothing else mutates them.
type Scheduler struct {
	cfg       SchedulerConfig
	client    *http.Client
	endpoints []Endpoint
	states    []*EndpointState // parallel to endpoints, configuration order
	policy    AlertPolicy
	sinks     []Sink

	startedAt time.Time
}

func NewScheduler(cfg SchedulerConfig, client *http.Client, endpoints []Endpoint, sinks ...Sink) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	states := make([]*EndpointState, len(endpoints))
	for i, ep := range endpoints {
		states[i] = NewEndpointState(ep.URL)
	}

	return &Scheduler{
		cfg:       cfg,
		client:    client,
		endpoints: endpoints,
		states:    states,
		policy:    AlertPolicy{Threshold: cfg.AlertThreshold},
		sinks:     sinks,
	}
}

// Run loops until ctx is canceled: probe the fleet, publish, sleep for the
// interval chosen from the fleet's health, repeat. Any endpoint with an open
// alert switches the whole fleet to the accelerated interval so recovery is
// noticed quickly.
func (s *Scheduler) Run(ctx context.Context) error {
	s.startedAt = time.Now()
	log.Printf("monitor: starting, %d endpoints, interval %s (accelerated %s)",
		len(s.endpoints), s.cfg.NormalInterval, s.cfg.AcceleratedInterval)

	for {
		mode := s.RunCycle(ctx)
		if ctx.Err() != nil {
			s.logFinalSummary()
			return ctx.Err()
		}

		interval := s.cfg.NormalInterval
		if mode == ModeAccelerated {
			interval = s.cfg.AcceleratedInterval
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logFinalSummary()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunOnce performs exactly one cycle and returns. Used for scripted and CI
// invocations where a long-running loop is unwanted.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.startedAt = time.Now()
	s.RunCycle(ctx)
	return ctx.Err()
}

// RunCycle probes every endpoint, applies the outcomes in configuration
// order, publishes the snapshot plus any alert events to the sinks, and
// returns the interval mode for the next cycle.
//
// Probes run on a bounded worker pool that is joined before any state is
// touched, so per-endpoint state mutation is always serialized. If ctx was
// canceled while probes were in flight their results are discarded: no state
// transition happens after shutdown was requested.
func (s *Scheduler) RunCycle(ctx context.Context) IntervalMode {
	outcomes := s.probeAll(ctx)

	if ctx.Err() != nil {
		return ModeNormal
	}

	events := make([]Event, 0, 2)
	for i, st := range s.states {
		prev := *st
		st.Apply(outcomes[i], s.cfg.AlertThreshold)

		if ev := s.policy.Evaluate(prev, st); ev != nil {
			events = append(events, *ev)
			switch ev.Kind {
			case EventAlertOpened:
				log.Printf("monitor: ALERT %s down after %d consecutive failures (%s)",
					ev.URL, ev.ConsecutiveFailures, ev.Reason)
			case EventAlertClosed:
				log.Printf("monitor: RECOVERED %s after %s downtime", ev.URL, ev.Downtime.Round(time.Second))
			}
		}
	}

	snap := s.buildSnapshot()
	snapshot.Publish(snap)

	for _, sink := range s.sinks {
		sink.Publish(ctx, snap, events)
	}

	if s.anyAlertOpen() {
		return ModeAccelerated
	}
	return ModeNormal
}

// probeAll checks every endpoint on a worker pool confined to this cycle.
// Results land in a slice parallel to s.endpoints so ordering is preserved
// no matter which worker ran which probe.
func (s *Scheduler) probeAll(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(s.endpoints))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.cfg.Workers
	if workers > len(s.endpoints) {
		workers = len(s.endpoints)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = s.probeOne(ctx, s.endpoints[i])
			}
		}()
	}

	for i := range s.endpoints {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return outcomes
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (s *Scheduler) probeOne(ctx context.Context, ep Endpoint) Outcome {
	probeCtx, cancel := context.WithTimeout(ctx, ep.Timeout)
	defer cancel()
	return Check(probeCtx, s.client, ep)
}

func (s *Scheduler) anyAlertOpen() bool {
	for _, st := range s.states {
		if st.AlertOpen {
			return true
		}
	}
	return false
}

func (s *Scheduler) buildSnapshot() snapshot.Snapshot {
	all := make([]snapshot.EndpointDTO, 0, len(s.states))
	byURL := make(map[string]snapshot.EndpointDTO, len(s.states))

	for _, st := range s.states {
		dto := snapshot.EndpointDTO{
			URL:                  st.URL,
			Up:                   st.LastOutcome.Healthy,
			AlertOpen:            st.AlertOpen,
			ConsecutiveFailures:  st.ConsecutiveFailures,
			ConsecutiveSuccesses: st.ConsecutiveSuccesses,
			StatusCode:           st.LastOutcome.StatusCode,
			LatencyMs:            st.LastOutcome.Latency.Milliseconds(),
			LastError:            st.LastOutcome.Reason,
			TotalChecks:          st.TotalChecks,
			TotalFailures:        st.TotalFailures,
		}
		if !st.LastOutcome.At.IsZero() {
			dto.LastChecked = st.LastOutcome.At.UTC().Format(time.RFC3339)
		}
		if st.AlertOpen {
			downSince := st.DownSince.UTC().Format(time.RFC3339)
			dto.DownSince = &downSince
		}

		all = append(all, dto)
		byURL[dto.URL] = dto
	}

	return snapshot.Snapshot{All: all, ByURL: byURL}
}

func (s *Scheduler) logFinalSummary() {
	var checks, failures int64
	up, down := 0, 0
	for _, st := range s.states {
		checks += st.TotalChecks
		failures += st.TotalFailures
		if st.AlertOpen {
			down++
		} else {
			up++
		}
	}

	rate := 0.0
	if checks > 0 {
		rate = float64(failures) / float64(checks) * 100
	}

	log.Printf("monitor: stopped after %s: %d checks, %d failures (%.2f%%), %d healthy, %d down",
		time.Since(s.startedAt).Round(time.Second), checks, failures, rate, up, down)
}
