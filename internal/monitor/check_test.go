package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"
)

func defaultHealthy() map[int]struct{} {
	set := make(map[int]struct{})
	for _, c := range []int{200, 201, 202, 204, 301, 302, 304, 307, 308} {
		set[c] = struct{}{}
	}
	return set
}

func TestCheckHealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ep := Endpoint{URL: srv.URL, Timeout: 2 * time.Second, HealthyStatusCodes: defaultHealthy()}
	out := Check(context.Background(), srv.Client(), ep)

	if !out.Healthy {
		t.Fatalf("expected healthy outcome, got reason %q", out.Reason)
	}
	if out.StatusCode != http.StatusNoContent {
		t.Fatalf("StatusCode=%d, want 204", out.StatusCode)
	}
	if out.Latency <= 0 {
		t.Fatal("latency not measured")
	}
	if out.At.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestCheckUnhealthyStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ep := Endpoint{URL: srv.URL, Timeout: 2 * time.Second, HealthyStatusCodes: defaultHealthy()}
	out := Check(context.Background(), srv.Client(), ep)

	if out.Healthy {
		t.Fatal("503 must be a failure")
	}
	if out.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("StatusCode=%d, want 503", out.StatusCode)
	}
	if out.Reason != "unhealthy status: 503" {
		t.Fatalf("Reason=%q", out.Reason)
	}
}

func TestCheckCustomHealthySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	ep := Endpoint{
		URL:                srv.URL,
		Timeout:            2 * time.Second,
		HealthyStatusCodes: map[int]struct{}{http.StatusTeapot: {}},
	}
	out := Check(context.Background(), srv.Client(), ep)

	if !out.Healthy {
		t.Fatalf("418 is configured healthy, got reason %q", out.Reason)
	}
}

func TestCheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ep := Endpoint{URL: srv.URL, Timeout: 50 * time.Millisecond, HealthyStatusCodes: defaultHealthy()}
	out := Check(ctx, srv.Client(), ep)

	if out.Healthy {
		t.Fatal("timed-out probe must fail")
	}
	if out.Reason != "timeout" {
		t.Fatalf("Reason=%q, want timeout", out.Reason)
	}
	if out.StatusCode != 0 {
		t.Fatalf("StatusCode=%d, want 0 for no response", out.StatusCode)
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	ep := Endpoint{URL: "http://" + addr, Timeout: 2 * time.Second, HealthyStatusCodes: defaultHealthy()}
	out := Check(context.Background(), &http.Client{}, ep)

	if out.Healthy {
		t.Fatal("refused connection must fail")
	}
	if out.Reason != "connection refused" {
		t.Fatalf("Reason=%q, want connection refused", out.Reason)
	}
}

type panicRoundTripper struct{}

func (panicRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	panic("boom")
}

func TestCheckRecoversFromPanic(t *testing.T) {
	client := &http.Client{Transport: panicRoundTripper{}}

	ep := Endpoint{URL: "http://example.com", Timeout: time.Second, HealthyStatusCodes: defaultHealthy()}
	out := Check(context.Background(), client, ep)

	if out.Healthy {
		t.Fatal("panicking probe must produce a failure outcome")
	}
	if !strings.HasPrefix(out.Reason, "internal error:") {
		t.Fatalf("Reason=%q, want internal error prefix", out.Reason)
	}
}

func TestClassifyProbeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"refused", syscall.ECONNREFUSED, "connection refused"},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, "dns error: no such host"},
		{"other", errors.New("tls: handshake failure"), "tls: handshake failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyProbeError(tt.err); got != tt.want {
				t.Fatalf("classifyProbeError(%v)=%q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
