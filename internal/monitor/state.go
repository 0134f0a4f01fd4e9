package monitor

import (
	"time"

	"github.com/google/uuid"
)

// historyCap bounds the per-endpoint outcome history kept for reporting.
const historyCap = 1000

// EndpointState is the health record for one endpoint. It is owned by the
// Scheduler and mutated only through Apply; everyone else sees read-only
// snapshot copies.
type EndpointState struct {
	URL string

	ConsecutiveFailures  int
	ConsecutiveSuccesses int

	LastOutcome Outcome

	// AlertOpen is true exactly while an outage episode has an open alert.
	// EpisodeID and DownSince are set together with AlertOpen and cleared
	// when the episode closes.
	AlertOpen bool
	EpisodeID string
	DownSince time.Time

	History []Outcome

	TotalChecks   int64
	TotalFailures int64
}

// NewEndpointState returns the initial (healthy, zeroed) state for url.
func NewEndpointState(url string) *EndpointState {
	return &EndpointState{URL: url}
}

// Apply folds one probe outcome into the state. threshold is the number of
// consecutive failures that opens an alert; the open is edge-triggered on
// the probe that makes the count exactly equal to threshold, so an episode
// opens at most once no matter how long it lasts. A single success closes
// an open episode immediately.
func (s *EndpointState) Apply(out Outcome, threshold int) {
	s.LastOutcome = out
	s.TotalChecks++
	s.appendHistory(out)

	if out.Healthy {
		s.ConsecutiveFailures = 0
		s.ConsecutiveSuccesses++
		if s.AlertOpen {
			s.AlertOpen = false
			s.EpisodeID = ""
			s.DownSince = time.Time{}
		}
		return
	}

	s.ConsecutiveSuccesses = 0
	s.ConsecutiveFailures++
	s.TotalFailures++

	if !s.AlertOpen && s.ConsecutiveFailures == threshold {
		s.AlertOpen = true
		s.EpisodeID = uuid.NewString()
		s.DownSince = out.At
	}
}

func (s *EndpointState) appendHistory(out Outcome) {
	s.History = append(s.History, out)
	if len(s.History) > historyCap {
		s.History = s.History[len(s.History)-historyCap:]
	}
}
