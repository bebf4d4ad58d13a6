package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeStatus(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body.Status
}

func TestHealthServer_Liveness(t *testing.T) {
	server := NewHealthServer(":0", discardLogger(), prometheus.NewRegistry())
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("failed to call /health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("expected application/json, got %q", got)
	}
	if status := decodeStatus(t, resp); status != "ok" {
		t.Errorf("expected status 'ok', got %q", status)
	}
}

func TestHealthServer_Readiness(t *testing.T) {
	server := NewHealthServer(":0", discardLogger(), prometheus.NewRegistry())
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	check := func(wantCode int, wantStatus string) {
		t.Helper()
		resp, err := http.Get(ts.URL + "/health/ready")
		if err != nil {
			t.Fatalf("failed to call /health/ready: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != wantCode {
			t.Errorf("expected status %d, got %d", wantCode, resp.StatusCode)
		}
		if status := decodeStatus(t, resp); status != wantStatus {
			t.Errorf("expected status %q, got %q", wantStatus, status)
		}
	}

	check(http.StatusServiceUnavailable, "not ready")
	server.SetReady(true)
	check(http.StatusOK, "ok")
	server.SetReady(false)
	check(http.StatusServiceUnavailable, "not ready")
}

func TestHealthServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWorkerMetrics(reg)
	metrics.ObserveMarketDegraded("no_data")

	server := NewHealthServer(":0", discardLogger(), reg)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to call /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), `reporter_market_degraded_total{reason="no_data"} 1`) {
		t.Errorf("expected degraded counter in exposition, got:\n%s", body)
	}
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	server := NewHealthServer(addr, discardLogger(), prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("expected http.ErrServerClosed, got %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
