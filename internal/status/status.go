// Package status provides a thread-safe status tracker for the garden controller.
// It is written by the control loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/garden-controller/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceName     string
	CycleMs        int64
	DebounceMs     int64
	Broker         string
	HTTPAddr       string
	LightPolicy    string
	WateringPolicy string
}

// Sensors is the last sensor snapshot.
type Sensors struct {
	ReadAt        time.Time
	Climate       logic.Climate
	Motion        bool
	Soil          logic.SoilReading
	LightLux      float64
	LightLuxOK    bool
	AirQualityRaw int
	AirQualityOK  bool
}

// Counts are monotonically increasing event counters.
type Counts struct {
	ButtonPresses   int
	Commands        int
	ConfigChanges   int
	TelemetrySent   int
	TelemetryFailed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Light    logic.LightState
	Watering logic.WateringState
	Sensors  Sensors
	Params   logic.RuntimeParameters

	SessionState  string
	MQTTConnected bool
	Counts        Counts

	StartTime time.Time
	Now       time.Time
	Network   *NetworkInfo
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:    startTime,
			Config:       cfg,
			SessionState: "DISCONNECTED",
		},
	}
}

// UpdateOutputs records the latest arbiter decisions.
// Called from the control loop on every cycle.
func (t *Tracker) UpdateOutputs(light logic.LightState, watering logic.WateringState) {
	t.mu.Lock()
	t.snap.Light = light
	t.snap.Watering = watering
	t.mu.Unlock()
}

// UpdateSensors records the latest sensor snapshot.
func (t *Tracker) UpdateSensors(s Sensors) {
	t.mu.Lock()
	t.snap.Sensors = s
	t.mu.Unlock()
}

// SetParams records the active runtime parameters.
func (t *Tracker) SetParams(p logic.RuntimeParameters) {
	t.mu.Lock()
	t.snap.Params = p
	t.mu.Unlock()
}

// SetSession sets the cloud session state.
func (t *Tracker) SetSession(state string, connected bool) {
	t.mu.Lock()
	t.snap.SessionState = state
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Count applies f to the counters under the lock.
func (t *Tracker) Count(f func(c *Counts)) {
	t.mu.Lock()
	f(&t.snap.Counts)
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
