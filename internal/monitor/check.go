package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Check performs a single HTTP probe of an endpoint.
// - The caller passes a context already bounded by the endpoint timeout.
// - Redirects are followed; the final status code is what gets judged
//   against the healthy set.
// - Never retries; the next scheduler cycle is the retry mechanism.
// - A panic anywhere inside the probe is recovered and reported as a
//   failure outcome, so one misbehaving check cannot take down the cycle.
func Check(ctx context.Context, client *http.Client, ep Endpoint) (out Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Healthy: false,
				Latency: time.Since(start),
				At:      time.Now(),
				Reason:  fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return Outcome{
			Healthy: false,
			At:      time.Now(),
			Reason:  fmt.Sprintf("build request: %v", err),
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Outcome{
			Healthy: false,
			Latency: time.Since(start),
			At:      time.Now(),
			Reason:  classifyProbeError(err),
		}
	}
	defer resp.Body.Close()

	out = Outcome{
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
		At:         time.Now(),
	}

	if !ep.Healthy(resp.StatusCode) {
		out.Healthy = false
		out.Reason = fmt.Sprintf("unhealthy status: %d", resp.StatusCode)
		return out
	}

	out.Healthy = true
	return out
}

// classifyProbeError maps transport errors to stable, human-readable reasons
// so the same cause always produces the same string in logs and alerts.
func classifyProbeError(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &dnsErr):
		return fmt.Sprintf("dns error: %v", dnsErr.Err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	}
	return err.Error()
}
