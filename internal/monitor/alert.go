package monitor

// AlertPolicy turns state transitions into alert events. It is stateless:
// the before/after pair of one Apply call carries everything it needs, and
// the AlertOpen flag on the state guarantees idempotence across an episode.
type AlertPolicy struct {
	Threshold int
}

// Evaluate compares the state before and after one Apply and returns the
// alert event that transition produced, or nil. Exactly one opened event
// fires per outage episode (on the probe that reached the threshold) and
// exactly one closed event on the first success after it.
func (p AlertPolicy) Evaluate(prev EndpointState, cur *EndpointState) *Event {
	switch {
	case !prev.AlertOpen && cur.AlertOpen:
		return &Event{
			Kind:                EventAlertOpened,
			EpisodeID:           cur.EpisodeID,
			URL:                 cur.URL,
			At:                  cur.DownSince,
			ConsecutiveFailures: cur.ConsecutiveFailures,
			StatusCode:          cur.LastOutcome.StatusCode,
			Reason:              cur.LastOutcome.Reason,
		}
	case prev.AlertOpen && !cur.AlertOpen:
		return &Event{
			Kind:       EventAlertClosed,
			EpisodeID:  prev.EpisodeID,
			URL:        cur.URL,
			At:         cur.LastOutcome.At,
			Downtime:   cur.LastOutcome.At.Sub(prev.DownSince),
			StatusCode: cur.LastOutcome.StatusCode,
		}
	default:
		return nil
	}
}
