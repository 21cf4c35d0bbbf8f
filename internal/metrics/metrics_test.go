package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCommand(t *testing.T) {
	m := New()

	m.ObserveCommand("tcp", "AUTH", true, time.Millisecond)
	m.ObserveCommand("tcp", "AUTH", true, time.Millisecond)
	m.ObserveCommand("tcp", "WHATEVER-1", false, time.Millisecond)
	m.ObserveCommand("tcp", "WHATEVER-2", false, time.Millisecond)

	if got := testutil.ToFloat64(m.commands.WithLabelValues("tcp", "AUTH", OutcomeFound)); got != 2 {
		t.Fatalf("AUTH count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("tcp", unresolvedName, OutcomeNotFound)); got != 2 {
		t.Fatalf("unresolved count = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.commands); n != 2 {
		t.Fatalf("expected 2 label sets, got %d", n)
	}
}

func TestConnections(t *testing.T) {
	m := New()
	m.ConnOpened("tcp")
	m.ConnOpened("tcp")
	m.ConnClosed("tcp")
	m.FrameTooLarge("udp")

	if got := testutil.ToFloat64(m.active.WithLabelValues("tcp")); got != 1 {
		t.Fatalf("active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connections.WithLabelValues("tcp")); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.framesTooLarge.WithLabelValues("udp")); got != 1 {
		t.Fatalf("frames too large = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCommand("tcp", "AUTH", true, time.Second)
	m.ConnOpened("tcp")
	m.ConnClosed("tcp")
	m.FrameTooLarge("tcp")
	if m.Handler() == nil {
		t.Fatalf("nil metrics should still serve a handler")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ConnOpened("udp")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `flowchat_transport_connections_total{transport="udp"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
}
