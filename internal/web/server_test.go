package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/garden-controller/internal/logic"
	"github.com/sweeney/garden-controller/internal/metrics"
	"github.com/sweeney/garden-controller/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		DeviceName:     "garden-1",
		CycleMs:        50,
		DebounceMs:     30,
		Broker:         "tcp://192.168.1.200:1883",
		HTTPAddr:       ":8080",
		LightPolicy:    "remote",
		WateringPolicy: "timer",
	}
	tr := status.NewTracker(start, cfg)
	m := metrics.New()
	srv := New(":0", tr, m)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.UpdateOutputs(
		logic.LightState{On: true, Reason: logic.ReasonSafetyFloor, Policy: logic.LightPolicyRemote},
		logic.WateringState{ValveOn: false, Reason: logic.ReasonIdle, Policy: logic.WateringPolicyTimer},
	)
	tr.SetSession("CONNECTED", true)

	sj := getJSON(t, ts.URL+"/index.json")

	if !sj.Status.Light.On {
		t.Error("expected light on")
	}
	if sj.Status.Light.Reason != "safety_floor" {
		t.Errorf("Light.Reason: got %q", sj.Status.Light.Reason)
	}
	if sj.Status.Watering.Policy != "timer" {
		t.Errorf("Watering.Policy: got %q", sj.Status.Watering.Policy)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.CycleMs != 50 {
		t.Errorf("Config.CycleMs: got %d, want 50", sj.Status.Config.CycleMs)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpoints(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.UpdateOutputs(logic.LightState{On: true}, logic.WateringState{Policy: logic.WateringPolicyTimer})
	tr.UpdateSensors(status.Sensors{Climate: logic.Climate{OK: true, TemperatureC: 15.2, HumidityPct: 60}})

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q, want text/html", path, ct)
		}
		if !strings.Contains(string(body), "15.2") {
			t.Errorf("%s: expected temperature in page", path)
		}
		if !strings.Contains(string(body), "garden-1") {
			t.Errorf("%s: expected device name in page", path)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Outputs(true, false)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "garden_light_on 1") {
		t.Errorf("expected light gauge in metrics output")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Watering.ValveOn {
		t.Error("expected valve off initially")
	}

	tr.UpdateOutputs(logic.LightState{}, logic.WateringState{ValveOn: true, Reason: logic.ReasonFeedbackPulse, FeedbackPulse: true})
	tr.Count(func(c *status.Counts) { c.Commands++ })

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Watering.ValveOn || !sj2.Status.Watering.FeedbackPulse {
		t.Errorf("expected feedback pulse reflected, got %+v", sj2.Status.Watering)
	}
	if sj2.Status.Counts.Commands != 1 {
		t.Errorf("Counts.Commands: got %d, want 1", sj2.Status.Counts.Commands)
	}
}

func TestMetricsDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	srv := New(":0", tr, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
}
