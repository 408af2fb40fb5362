package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/goleak"

	"github.com/strongdm/supportdesk/internal/config"
	"github.com/strongdm/supportdesk/internal/httpserver"
	"github.com/strongdm/supportdesk/internal/listen"
	"github.com/strongdm/supportdesk/internal/telemetry/otel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	s, err := New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func titled(title string) config.Config {
	cfg := config.Default()
	cfg.TitleOverride = &title
	cfg.TitleSource = config.SourceEnv
	return cfg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestTitleAgreesAcrossMetadataAndHeading(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{name: "default", cfg: config.Default(), want: "Customer Support Workspace"},
		{name: "override", cfg: titled("Acme Support"), want: "Acme Support"},
		{name: "empty override", cfg: titled(""), want: ""},
	}
	for _, tt := range tests {
		s := newTestServer(t, tt.cfg)
		body := get(t, s.Handler(), "/").Body.String()
		if !strings.Contains(body, "<title>"+tt.want+"</title>") {
			t.Fatalf("%s: metadata title missing from:\n%s", tt.name, body)
		}
		if !strings.Contains(body, `<h1 class="landing__title">`+tt.want+"</h1>") {
			t.Fatalf("%s: heading missing from:\n%s", tt.name, body)
		}
		if s.View().Metadata.Title != s.View().Landing.Heading {
			t.Fatalf("%s: view title and heading diverged", tt.name)
		}
	}
}

func TestHandlerRoutes(t *testing.T) {
	s := newTestServer(t, config.Default())

	tests := []struct {
		target string
		status int
	}{
		{target: "/", status: http.StatusOK},
		{target: "/healthz", status: http.StatusOK},
		{target: "/api/workspace", status: http.StatusOK},
		{target: "/globals.css", status: http.StatusOK},
		{target: "/nope", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := get(t, s.Handler(), tt.target)
		if rec.Code != tt.status {
			t.Fatalf("GET %s = %d, want %d", tt.target, rec.Code, tt.status)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Fatalf("GET %s missing request id", tt.target)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/":              "/",
		"/index.html":    "/",
		"/healthz":       "/healthz",
		"/api/workspace": "/api/workspace",
		"/globals.css":   "asset",
		"/admin":         "other",
	}
	for target, want := range tests {
		if got := routeLabel(httptest.NewRequest(http.MethodGet, target, nil)); got != want {
			t.Fatalf("routeLabel(%s) = %q, want %q", target, got, want)
		}
	}
}

func TestServeAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Open = true
	s := newTestServer(t, cfg)
	var opened string
	s.openURL = func(url string) error {
		opened = url
		return nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		cancel()
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), config.DefaultTitle) {
		cancel()
		t.Fatalf("unexpected response %d:\n%s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not shut down")
	}

	port := ln.Addr().(*net.TCPAddr).Port
	if !strings.HasSuffix(opened, ":"+strconv.Itoa(port)+"/") {
		t.Fatalf("opened %q, want port %d", opened, port)
	}
}

func TestRunDisabledReturnsImmediately(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = listen.Config{Disable: true}
	s := newTestServer(t, cfg)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunReportsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := config.Default()
	cfg.Listen = listen.Config{Host: "127.0.0.1", Port: strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)}
	s := newTestServer(t, cfg)
	err = s.Run(context.Background())
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestTelemetryCountsServedRequests(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.EnableMetrics = true
	s := newTestServer(t, cfg)
	get(t, s.Handler(), "/")
	get(t, s.Handler(), "/healthz")

	rm, err := s.Telemetry().Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatalf("expected request metrics")
	}
}

func TestMiddlewareCountsPanickingRequests(t *testing.T) {
	provider, err := otel.Setup(context.Background(), otel.Config{EnableMetrics: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer provider.Shutdown(context.Background())

	logger, _ := logtest.NewNullLogger()
	h := httpserver.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), middleware(logger, provider.HTTP())...)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	rm, err := provider.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	counted := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if m.Name != "supportdesk.http.requests" || !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if status, ok := dp.Attributes.Value(attribute.Key("http.status_code")); ok && status.AsInt64() == http.StatusInternalServerError {
					counted = true
				}
			}
		}
	}
	if !counted {
		t.Fatalf("expected the panicking request to be counted as a 500")
	}
}
