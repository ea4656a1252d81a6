// Package remoteconfig merges cloud attribute payloads into the runtime
// parameters, persists them, and restores them at boot.
package remoteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/garden-controller/internal/logic"
	"github.com/sweeney/garden-controller/internal/metrics"
	"github.com/sweeney/garden-controller/internal/store"
)

// Namespace is the store namespace for the parameter snapshot.
const Namespace = "sg_cfg"

// presenceKey marks that a snapshot has been written at least once.
const presenceKey = "has"

// ParamsApplier receives the parameters after every effective change.
type ParamsApplier interface {
	ApplyParams(p logic.RuntimeParameters)
}

// Synchronizer is the single writer of RuntimeParameters.
type Synchronizer struct {
	params   *logic.RuntimeParameters
	settings *logic.Settings
	store    store.Store
	appliers []ParamsApplier

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// New creates a Synchronizer over the shared parameter and settings records.
func New(params *logic.RuntimeParameters, settings *logic.Settings, st store.Store, appliers ...ParamsApplier) *Synchronizer {
	return &Synchronizer{
		params:   params,
		settings: settings,
		store:    st,
		appliers: appliers,
	}
}

// SharedKeysCSV returns the recognized keys joined by commas, in their
// stable order.
func SharedKeysCSV() string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return strings.Join(keys, ",")
}

// Begin restores the persisted snapshot if one exists, then clamps and
// propagates the result. It returns whether a snapshot was loaded. A store
// failure leaves the compiled-in defaults in place.
func (s *Synchronizer) Begin(ctx context.Context) (bool, error) {
	loaded, err := s.load(ctx)
	s.params.Clamp()
	s.propagate()
	if err != nil {
		return false, err
	}
	return loaded, nil
}

func (s *Synchronizer) load(ctx context.Context) (bool, error) {
	prefs, err := s.store.Open(ctx, Namespace, store.ReadOnly)
	if err != nil {
		return false, fmt.Errorf("load parameters: %w", err)
	}
	defer prefs.Close()

	if !prefs.Bool(presenceKey, false) {
		return false, nil
	}
	for _, f := range fields {
		f.load(s.params, prefs)
	}
	return true, nil
}

// Apply merges payload into the parameters. The keys may sit under a
// "shared" or "client" envelope or at top level. Unknown keys and values
// of the wrong type are skipped individually. Returns whether anything
// changed; only then are the parameters propagated and persisted.
func (s *Synchronizer) Apply(ctx context.Context, payload map[string]any) bool {
	cfg, ok := unwrap(payload)
	if !ok {
		log.Warn().Msg("attributes payload has no object to merge")
		return false
	}

	changed := false
	for _, f := range fields {
		v, present := cfg[f.key]
		if !present {
			continue
		}
		c, accepted := f.merge(s.params, v)
		if !accepted {
			log.Warn().Str("key", f.key).Interface("value", v).Msg("ignoring attribute with wrong type or range")
			continue
		}
		if c {
			log.Info().Str("key", f.key).Interface("value", v).Msg("parameter changed")
			changed = true
		}
	}

	if s.params.Clamp() {
		log.Info().
			Dur("telemetry_interval", s.params.TelemetryInterval).
			Dur("sensor_read_interval", s.params.SensorReadInterval).
			Msg("interval clamped to safety floor")
		changed = true
	}

	if !changed {
		return false
	}

	s.Metrics.ConfigChanged()
	s.propagate()
	if err := s.persist(ctx); err != nil {
		log.Warn().Err(err).Msg("parameters changed but not persisted")
	}
	return true
}

// ApplyJSON decodes raw attribute JSON and merges it.
func (s *Synchronizer) ApplyJSON(ctx context.Context, data []byte) (bool, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return false, fmt.Errorf("decode attributes: %w", err)
	}
	return s.Apply(ctx, payload), nil
}

// SetWateringInterval updates the watering interval as if it had arrived as
// an attribute.
func (s *Synchronizer) SetWateringInterval(ctx context.Context, ms uint32) bool {
	return s.Apply(ctx, map[string]any{"wateringIntervalMs": float64(ms)})
}

// Params returns a copy of the current parameters.
func (s *Synchronizer) Params() logic.RuntimeParameters {
	return *s.params
}

func (s *Synchronizer) propagate() {
	for _, a := range s.appliers {
		a.ApplyParams(*s.params)
	}
	s.settings.MirrorParameters(*s.params)
}

func (s *Synchronizer) persist(ctx context.Context) (err error) {
	defer func() { s.Metrics.ConfigPersisted(err == nil) }()

	prefs, err := s.store.Open(ctx, Namespace, store.ReadWrite)
	if err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}

	var errs []error
	errs = append(errs, prefs.PutBool(presenceKey, true))
	for _, f := range fields {
		errs = append(errs, f.save(s.params, prefs))
	}
	errs = append(errs, prefs.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	log.Debug().Msg("parameters persisted")
	return nil
}

// unwrap picks the "shared" or "client" envelope when present.
func unwrap(payload map[string]any) (map[string]any, bool) {
	if payload == nil {
		return nil, false
	}
	for _, env := range []string{"shared", "client"} {
		if inner, ok := payload[env]; ok {
			m, ok := inner.(map[string]any)
			return m, ok
		}
	}
	return payload, true
}
