// Package app composes the arbiters, the config synchronizer and the cloud
// session into one cooperative control cycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/garden-controller/internal/gpio"
	"github.com/sweeney/garden-controller/internal/logic"
	"github.com/sweeney/garden-controller/internal/metrics"
	"github.com/sweeney/garden-controller/internal/mqtt"
	"github.com/sweeney/garden-controller/internal/remoteconfig"
	"github.com/sweeney/garden-controller/internal/sensor"
	"github.com/sweeney/garden-controller/internal/status"
	"github.com/sweeney/garden-controller/internal/store"
)

// Sensors are the controller's inputs. Unfitted sensors should be
// sensor.Absent.
type Sensors struct {
	Climate    sensor.Climate
	Motion     sensor.Sensor[bool]
	Lux        sensor.Sensor[float64]
	AirQuality sensor.Sensor[float64]
	Soil       sensor.Sensor[float64]
}

// Options select the policies and session behavior.
type Options struct {
	LightPolicy    logic.LightPolicyName
	WateringPolicy logic.WateringPolicyName
	Session        mqtt.SessionConfig
}

// Deps are the collaborators the controller drives. Button, Tracker and
// Metrics may be nil.
type Deps struct {
	Light     logic.Actuator
	Valve     logic.Actuator
	Button    *gpio.Button
	Sensors   Sensors
	Store     store.Store
	Transport mqtt.Transport
	Tracker   *status.Tracker
	Metrics   *metrics.Metrics
}

// Controller owns the runtime parameters and settings. Every method must
// be called from the control goroutine.
type Controller struct {
	params   logic.RuntimeParameters
	settings logic.Settings

	light    *logic.LightArbiter
	watering *logic.WateringArbiter
	sync     *remoteconfig.Synchronizer
	session  *mqtt.Session

	deps Deps

	// cycleCtx and cycleNow are valid for the duration of one Step, for the
	// handlers that the session dispatches into.
	cycleCtx context.Context
	cycleNow time.Time

	sensorsRead    bool
	lastSensorRead time.Time
	telemetryTried bool
	lastTelemetry  time.Time

	climate logic.Climate
	motion  bool
	soil    logic.SoilReading
	lux     sensor.Reading[float64]
	air     sensor.Reading[float64]
}

// New wires a controller with compiled-in default parameters. Call Begin
// before the first Step to restore persisted parameters.
func New(opts Options, deps Deps) (*Controller, error) {
	c := &Controller{
		params:   logic.DefaultParameters(),
		settings: logic.DefaultSettings(),
		deps:     deps,
		cycleCtx: context.Background(),
	}
	c.settings.MirrorParameters(c.params)

	var err error
	c.light, err = logic.NewLightArbiter(opts.LightPolicy, deps.Light, &c.settings, c.params)
	if err != nil {
		return nil, fmt.Errorf("light arbiter: %w", err)
	}
	c.watering, err = logic.NewWateringArbiter(opts.WateringPolicy, deps.Valve, &c.settings, c.params)
	if err != nil {
		return nil, fmt.Errorf("watering arbiter: %w", err)
	}

	c.sync = remoteconfig.New(&c.params, &c.settings, deps.Store, c.light, c.watering)
	c.sync.Metrics = deps.Metrics

	sc := opts.Session
	sc.SharedKeys = remoteconfig.SharedKeysCSV()
	c.session = mqtt.NewSession(deps.Transport, sc, c.handleCommand, c.handleAttributes)
	c.session.Metrics = deps.Metrics

	return c, nil
}

// Begin restores persisted parameters. A store failure is logged and the
// defaults stay in effect.
func (c *Controller) Begin(ctx context.Context) {
	loaded, err := c.sync.Begin(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("using default parameters")
	case loaded:
		log.Info().Msg("restored persisted parameters")
	default:
		log.Info().Msg("no persisted parameters, using defaults")
	}
	if tr := c.deps.Tracker; tr != nil {
		tr.SetParams(c.params)
	}
}

// Dial performs the bounded startup connect.
func (c *Controller) Dial(ctx context.Context) error {
	return c.session.Dial(ctx)
}

// Session returns the cloud session.
func (c *Controller) Session() *mqtt.Session {
	return c.session
}

// Params returns a copy of the active runtime parameters.
func (c *Controller) Params() logic.RuntimeParameters {
	return c.params
}

// Settings returns a copy of the active settings.
func (c *Controller) Settings() logic.Settings {
	return c.settings
}

// Step runs one control cycle. It never returns early on a collaborator
// failure; each failure is logged and retried on a later cycle.
func (c *Controller) Step(ctx context.Context, now time.Time) {
	c.cycleCtx = ctx
	c.cycleNow = now

	c.pollButton(now)

	c.session.Loop()
	connected := c.session.EnsureConnected(now)
	if connected {
		c.session.MaybeRequestAttributes(now)
	}

	c.readSensors(now)

	lightState, err := c.light.Update(logic.LightInput{Now: now, Motion: c.motion, Climate: c.climate})
	if err != nil {
		log.Warn().Err(err).Msg("light output")
	}
	wateringState, err := c.watering.Update(logic.WateringInput{Now: now, Soil: c.soil})
	if err != nil {
		log.Warn().Err(err).Msg("valve output")
	}
	c.deps.Metrics.Outputs(lightState.On, wateringState.ValveOn)

	if connected {
		c.maybePublishTelemetry(now, lightState, wateringState)
	}

	if tr := c.deps.Tracker; tr != nil {
		tr.UpdateOutputs(lightState, wateringState)
		tr.SetSession(string(c.session.State()), c.session.Connected())
		tr.SetParams(c.params)
	}
}

func (c *Controller) pollButton(now time.Time) {
	if c.deps.Button == nil {
		return
	}
	pressed, err := c.deps.Button.Poll(now)
	if err != nil {
		log.Debug().Err(err).Msg("button")
		return
	}
	if !pressed {
		return
	}
	c.settings.ToggleManualOff()
	c.deps.Metrics.ButtonPressed()
	if tr := c.deps.Tracker; tr != nil {
		tr.Count(func(n *status.Counts) { n.ButtonPresses++ })
	}
	log.Info().Bool("manual_off", c.settings.ManualOff).Msg("button pressed")
}

func (c *Controller) readSensors(now time.Time) {
	s := c.deps.Sensors

	// Motion is a GPIO level and is sampled every cycle.
	if s.Motion != nil {
		m := s.Motion.Read()
		c.motion = m.Valid && m.Value
	}

	if c.sensorsRead && now.Sub(c.lastSensorRead) < c.params.SensorReadInterval {
		return
	}
	c.sensorsRead = true
	c.lastSensorRead = now

	if s.Climate.Temperature != nil && s.Climate.Humidity != nil {
		c.climate = s.Climate.Read()
	}
	if s.Soil != nil {
		c.soil = sensor.Soil(s.Soil)
	}
	if s.Lux != nil {
		c.lux = s.Lux.Read()
	}
	if s.AirQuality != nil {
		c.air = s.AirQuality.Read()
	}

	c.deps.Metrics.SensorRead("climate", c.climate.OK)
	c.deps.Metrics.SensorRead("soil", c.soil.OK)
	if c.climate.OK {
		c.deps.Metrics.Temperature(c.climate.TemperatureC)
	}
	log.Debug().
		Bool("climate_ok", c.climate.OK).
		Float64("temperature_c", c.climate.TemperatureC).
		Bool("soil_ok", c.soil.OK).
		Int("soil_raw", c.soil.Raw).
		Msg("sensors read")

	if tr := c.deps.Tracker; tr != nil {
		tr.UpdateSensors(status.Sensors{
			ReadAt:        now,
			Climate:       c.climate,
			Motion:        c.motion,
			Soil:          c.soil,
			LightLux:      c.lux.Value,
			LightLuxOK:    c.lux.Valid,
			AirQualityRaw: int(c.air.Value),
			AirQualityOK:  c.air.Valid,
		})
	}
}

// maybePublishTelemetry publishes once per telemetry interval. A failed
// publish is not queued: the next attempt carries fresh values.
func (c *Controller) maybePublishTelemetry(now time.Time, l logic.LightState, w logic.WateringState) {
	if c.telemetryTried && now.Sub(c.lastTelemetry) < c.params.TelemetryInterval {
		return
	}
	c.telemetryTried = true
	c.lastTelemetry = now

	payload, err := mqtt.FormatTelemetry(c.buildTelemetry(l, w))
	if err != nil {
		log.Error().Err(err).Msg("format telemetry")
		return
	}
	err = c.session.PublishTelemetry(payload)
	if tr := c.deps.Tracker; tr != nil {
		tr.Count(func(n *status.Counts) {
			if err != nil {
				n.TelemetryFailed++
			} else {
				n.TelemetrySent++
			}
		})
	}
	if err != nil {
		log.Warn().Err(err).Msg("telemetry not published")
		return
	}
	log.Debug().RawJSON("payload", payload).Msg("telemetry published")
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func (c *Controller) buildTelemetry(l logic.LightState, w logic.WateringState) mqtt.Telemetry {
	t := mqtt.Telemetry{
		TemperatureC:  optional(c.climate.TemperatureC, c.climate.OK),
		HumidityPct:   optional(c.climate.HumidityPct, c.climate.OK),
		Motion:        c.motion,
		AirQualityRaw: optional(int(c.air.Value), c.air.Valid),
		LightLux:      optional(c.lux.Value, c.lux.Valid),
		SoilRaw:       optional(c.soil.Raw, c.soil.OK),

		LightOn:               l.On,
		LightReason:           string(l.Reason),
		ManualOff:             c.settings.ManualOff,
		RemoteOverrideEnabled: c.settings.RemoteOverrideEnabled,
		TempLimitEnabled:      c.settings.TempLimitEnabled,
		SelfLightEnable:       c.settings.SelfLightEnable,

		ValveOn:         w.ValveOn,
		ValveReason:     string(w.Reason),
		SelfValveEnable: c.settings.SelfValveEnable,
	}
	switch w.Policy {
	case logic.WateringPolicyMoisture:
		t.IsDry = optional(w.IsDry, true)
	case logic.WateringPolicyTimer:
		t.IsWatering = optional(w.IsWatering, true)
	}
	return t
}

func (c *Controller) handleAttributes(payload map[string]any) {
	if c.sync.Apply(c.cycleCtx, payload) {
		if tr := c.deps.Tracker; tr != nil {
			tr.Count(func(n *status.Counts) { n.ConfigChanges++ })
		}
		log.Info().Msg("remote configuration applied")
	}
}

// Shutdown drives both relays OFF and closes the session.
func (c *Controller) Shutdown() {
	if err := c.deps.Light.SetOn(false); err != nil {
		log.Warn().Err(err).Msg("light off at shutdown")
	}
	if err := c.deps.Valve.SetOn(false); err != nil {
		log.Warn().Err(err).Msg("valve off at shutdown")
	}
	c.session.Close()
}
