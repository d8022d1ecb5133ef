package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/matching"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/internal/verticals"
	"github.com/wolfman30/carehub/pkg/logging"
)

func TestSetupMetricsExposesFlowMetrics(t *testing.T) {
	handler, flowMetrics := setupMetrics()
	if handler == nil || flowMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	flowMetrics.FlowStarted("lab")
	flowMetrics.ChatStreamFailed("rate_limited")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"carehub_flow_active", "carehub_chat_stream_failures_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s to be exported", name)
		}
	}
}

func TestNewFlowFactoryWiresCollaborators(t *testing.T) {
	logger := logging.Discard()
	_, flowMetrics := setupMetrics()
	service := bookings.NewService(bookings.NewInMemoryRepository(), nil, logger)
	notes := notify.NewMemoryStore()
	catalog := verticals.NewRegistry(verticals.Options{AssignmentDelay: time.Millisecond})
	def, ok := catalog.Definition("lab")
	if !ok {
		t.Fatalf("expected lab vertical")
	}

	factory := newFlowFactory(service, notes, matching.NewSimulated(matching.WithLogger(logger)), flowMetrics, logger)
	f := factory(def, "user-1")
	defer f.Dispose()

	if f.UserID() != "user-1" || f.Vertical() != "lab" {
		t.Fatalf("unexpected flow owner %q / vertical %q", f.UserID(), f.Vertical())
	}
	if f.Current() != def.Graph.First() {
		t.Fatalf("expected flow to start at %q, got %q", def.Graph.First(), f.Current())
	}
	var _ flow.Observer = flowMetrics
}

func TestHealthChecks(t *testing.T) {
	if checks := healthChecks(nil, nil); len(checks) != 0 {
		t.Fatalf("expected no checks without dependencies, got %d", len(checks))
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	checks := healthChecks(nil, client)
	check, ok := checks["redis"]
	if !ok {
		t.Fatalf("expected redis check")
	}
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected redis to be healthy: %v", err)
	}
}
