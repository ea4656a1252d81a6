package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ConnectAttempt(true)
	m.PublishFailed("telemetry")
	m.Command("setLight", true, true)
	m.ConfigChanged()
	m.ConfigPersisted(false)
	m.SensorRead("climate", true)
	m.ButtonPressed()
	m.Outputs(true, false)
	m.Temperature(20)
	m.Connected(true)
	if m.Registry() != nil {
		t.Error("nil metrics must have nil registry")
	}
}

func TestCommandFoldsUnknownMethods(t *testing.T) {
	m := New()
	m.Command("bogus1", false, false)
	m.Command("bogus2", false, false)
	m.Command("setLight", true, true)

	if got := testutil.ToFloat64(m.commands.WithLabelValues("unknown", "error")); got != 2 {
		t.Errorf("expected 2 unknown commands, got %v", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("setLight", "ok")); got != 1 {
		t.Errorf("expected 1 setLight, got %v", got)
	}
}

func TestOutputsGauges(t *testing.T) {
	m := New()
	m.Outputs(true, false)
	if testutil.ToFloat64(m.lightOn) != 1 || testutil.ToFloat64(m.valveOn) != 0 {
		t.Error("unexpected gauge values")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	m := New()
	m.ConfigChanged()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "garden_config_changes_total 1") {
		t.Errorf("expected changes counter in output:\n%s", rec.Body.String())
	}
}
