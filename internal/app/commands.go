package app

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/garden-controller/internal/logic"
	"github.com/sweeney/garden-controller/internal/mqtt"
	"github.com/sweeney/garden-controller/internal/status"
)

// Remote command names.
const (
	MethodSetLight             = "setLight"
	MethodClearLightOverride   = "clearLightOverride"
	MethodSetTempLimit         = "setTempLimit"
	MethodSetTempLimitEnabled  = "setTempLimitEnabled"
	MethodSetManualOff         = "setManualOff"
	MethodToggleManualOff      = "toggleManualOff"
	MethodSetWateringInterval  = "setWateringInterval"
	MethodTriggerValveFeedback = "triggerValveFeedback"
)

// handleCommand applies one remote command. The session acknowledges the
// returned error.
func (c *Controller) handleCommand(method string, params json.RawMessage) error {
	err := c.execute(method, params)
	if tr := c.deps.Tracker; tr != nil {
		tr.Count(func(n *status.Counts) { n.Commands++ })
	}
	return err
}

func (c *Controller) execute(method string, params json.RawMessage) error {
	s := &c.settings
	switch method {
	case MethodSetLight:
		on, err := boolParam(params)
		if err != nil {
			return err
		}
		s.SetRemoteOverride(true, on)
		log.Info().Bool("on", on).Msg("remote light override set")

	case MethodClearLightOverride:
		s.SetRemoteOverride(false, false)
		log.Info().Msg("remote light override cleared")

	case MethodSetTempLimit:
		v, err := floatParam(params)
		if err != nil {
			return err
		}
		s.TempTooColdC = v
		s.TempLimitEnabled = true
		log.Info().Float64("temp_too_cold_c", v).Msg("temperature limit set")

	case MethodSetTempLimitEnabled:
		on, err := boolParam(params)
		if err != nil {
			return err
		}
		s.TempLimitEnabled = on

	case MethodSetManualOff:
		on, err := boolParam(params)
		if err != nil {
			return err
		}
		s.ManualOff = on

	case MethodToggleManualOff:
		s.ToggleManualOff()

	case MethodSetWateringInterval:
		if c.watering.Policy() != logic.WateringPolicyTimer {
			return fmt.Errorf("%w: %s", mqtt.ErrUnknownMethod, method)
		}
		ms, err := uint32Param(params)
		if err != nil {
			return err
		}
		if c.sync.SetWateringInterval(c.cycleCtx, ms) {
			log.Info().Uint32("watering_interval_ms", ms).Msg("watering interval set")
		}

	case MethodTriggerValveFeedback:
		c.watering.TriggerFeedbackPulse(c.cycleNow)
		log.Info().Msg("valve feedback pulse")

	default:
		return fmt.Errorf("%w: %s", mqtt.ErrUnknownMethod, method)
	}
	return nil
}

// Params are bare JSON values. Dashboards often send them as strings, so a
// quoted value is accepted too.
func unquote(params json.RawMessage) string {
	raw := strings.TrimSpace(string(params))
	if u, err := strconv.Unquote(raw); err == nil {
		return u
	}
	return raw
}

func boolParam(params json.RawMessage) (bool, error) {
	b, err := strconv.ParseBool(unquote(params))
	if err != nil {
		return false, fmt.Errorf("params: want bool, got %q", string(params))
	}
	return b, nil
}

func floatParam(params json.RawMessage) (float64, error) {
	f, err := strconv.ParseFloat(unquote(params), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("params: want number, got %q", string(params))
	}
	return f, nil
}

func uint32Param(params json.RawMessage) (uint32, error) {
	n, err := strconv.ParseUint(unquote(params), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("params: want unsigned integer, got %q", string(params))
	}
	return uint32(n), nil
}
