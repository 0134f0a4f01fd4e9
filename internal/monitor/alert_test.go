package monitor

import (
	"testing"
	"time"
)

// drive applies outcomes in sequence and collects the events the policy
// produced, the way the scheduler does each cycle.
func drive(st *EndpointState, policy AlertPolicy, outcomes ...Outcome) []Event {
	var events []Event
	for _, out := range outcomes {
		prev := *st
		st.Apply(out, policy.Threshold)
		if ev := policy.Evaluate(prev, st); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

func TestExactlyOneOpenedPerEpisode(t *testing.T) {
	policy := AlertPolicy{Threshold: 2}
	st := NewEndpointState("https://a.example.com")
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	events := drive(st, policy,
		failureAt(base),
		failureAt(base.Add(time.Minute)),
		failureAt(base.Add(2*time.Minute)),
		failureAt(base.Add(3*time.Minute)),
	)

	if len(events) != 1 {
		t.Fatalf("got %d events, want exactly 1 opened", len(events))
	}
	ev := events[0]
	if ev.Kind != EventAlertOpened {
		t.Fatalf("event kind=%s, want %s", ev.Kind, EventAlertOpened)
	}
	if ev.ConsecutiveFailures != 2 {
		t.Fatalf("opened with ConsecutiveFailures=%d, want 2", ev.ConsecutiveFailures)
	}
	if !ev.At.Equal(base.Add(time.Minute)) {
		t.Fatalf("opened At=%v, want %v", ev.At, base.Add(time.Minute))
	}
	if ev.EpisodeID == "" {
		t.Fatal("opened event missing episode id")
	}
}

func TestClosedEventDowntime(t *testing.T) {
	policy := AlertPolicy{Threshold: 2}
	st := NewEndpointState("https://a.example.com")
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	events := drive(st, policy,
		failureAt(base),
		failureAt(base.Add(time.Minute)), // opens, DownSince = base+1m
		failureAt(base.Add(2*time.Minute)),
		successAt(base.Add(5*time.Minute)), // closes
	)

	if len(events) != 2 {
		t.Fatalf("got %d events, want opened+closed", len(events))
	}

	opened, closed := events[0], events[1]
	if closed.Kind != EventAlertClosed {
		t.Fatalf("second event kind=%s, want %s", closed.Kind, EventAlertClosed)
	}
	if closed.EpisodeID != opened.EpisodeID {
		t.Fatalf("closed episode %s does not match opened %s", closed.EpisodeID, opened.EpisodeID)
	}
	if want := 4 * time.Minute; closed.Downtime != want {
		t.Fatalf("Downtime=%s, want %s", closed.Downtime, want)
	}
}

func TestNoEventsBelowThreshold(t *testing.T) {
	policy := AlertPolicy{Threshold: 3}
	st := NewEndpointState("https://a.example.com")
	now := time.Now()

	events := drive(st, policy,
		failureAt(now),
		failureAt(now),
		successAt(now), // recovery without an open alert: silent
		failureAt(now),
	)

	if len(events) != 0 {
		t.Fatalf("got %d events below threshold, want 0", len(events))
	}
}

func TestEpisodeNeverRecoversProducesOnlyOpened(t *testing.T) {
	policy := AlertPolicy{Threshold: 1}
	st := NewEndpointState("https://a.example.com")
	now := time.Now()

	outcomes := make([]Outcome, 50)
	for i := range outcomes {
		outcomes[i] = failureAt(now)
	}

	events := drive(st, policy, outcomes...)
	if len(events) != 1 || events[0].Kind != EventAlertOpened {
		t.Fatalf("got %d events, want a single opened", len(events))
	}
}

func TestFlappingEndpointPairsEvents(t *testing.T) {
	policy := AlertPolicy{Threshold: 1}
	st := NewEndpointState("https://a.example.com")
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	var outcomes []Outcome
	for i := 0; i < 3; i++ {
		outcomes = append(outcomes,
			failureAt(base.Add(time.Duration(2*i)*time.Minute)),
			successAt(base.Add(time.Duration(2*i+1)*time.Minute)),
		)
	}

	events := drive(st, policy, outcomes...)
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6 (3 opened/closed pairs)", len(events))
	}
	for i := 0; i < len(events); i += 2 {
		if events[i].Kind != EventAlertOpened || events[i+1].Kind != EventAlertClosed {
			t.Fatalf("pair %d out of order: %s, %s", i/2, events[i].Kind, events[i+1].Kind)
		}
		if events[i].EpisodeID != events[i+1].EpisodeID {
			t.Fatalf("pair %d episode mismatch", i/2)
		}
		if i > 0 && events[i].EpisodeID == events[i-2].EpisodeID {
			t.Fatalf("episodes %d and %d share an id", i/2-1, i/2)
		}
	}
}
