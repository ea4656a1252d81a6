package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qmuntal/stateless"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/garden-controller/internal/metrics"
)

// State is the session connection state.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

const (
	triggerDial      = "dial"
	triggerConnected = "connected"
	triggerFailed    = "failed"
	triggerLost      = "lost"
)

// CommandHandler executes one remote command. It returns ErrUnknownMethod
// (possibly wrapped) for methods it does not recognize.
type CommandHandler func(method string, params json.RawMessage) error

// AttributesHandler receives a decoded attribute payload.
type AttributesHandler func(payload map[string]any)

// SessionConfig configures a Session. Zero values take the defaults.
type SessionConfig struct {
	RetryInterval    time.Duration
	AttrRequestDelay time.Duration
	ConnectTimeout   time.Duration
	InboxSize        int

	// SharedKeys is the comma-separated key list sent in attribute requests.
	SharedKeys string
}

type message struct {
	topic   string
	payload []byte
}

// Session keeps one broker connection alive from the control cycle.
// All methods except the transport callback must be called from the same
// goroutine; inbound messages are queued and dispatched by Loop.
type Session struct {
	t   Transport
	cfg SessionConfig
	sm  *stateless.StateMachine

	inbox   chan message
	dropped atomic.Int64

	// busy holds request ids of commands that overflowed the inbox. They
	// are rejected from Loop so every request still gets one ack.
	busyMu sync.Mutex
	busy   []string

	attempted   bool
	lastAttempt time.Time
	connectedAt time.Time

	attrRequested   bool
	attrAttempted   bool
	lastAttrAttempt time.Time
	nextAttrID      uint64

	onCommand    CommandHandler
	onAttributes AttributesHandler

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// NewSession creates a disconnected session over t and registers the
// inbound message callback.
func NewSession(t Transport, cfg SessionConfig, onCommand CommandHandler, onAttributes AttributesHandler) *Session {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.AttrRequestDelay <= 0 {
		cfg.AttrRequestDelay = DefaultAttrRequestDelay
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}

	s := &Session{
		t:            t,
		cfg:          cfg,
		inbox:        make(chan message, cfg.InboxSize),
		nextAttrID:   1,
		onCommand:    onCommand,
		onAttributes: onAttributes,
	}

	sm := stateless.NewStateMachine(StateDisconnected)
	sm.Configure(StateDisconnected).
		Permit(triggerDial, StateConnecting).
		OnEntry(func(context.Context, ...any) error {
			s.Metrics.Connected(false)
			return nil
		})
	sm.Configure(StateConnecting).
		Permit(triggerConnected, StateConnected).
		Permit(triggerFailed, StateDisconnected).
		Permit(triggerLost, StateDisconnected)
	sm.Configure(StateConnected).
		Permit(triggerLost, StateDisconnected).
		OnEntry(s.onConnected)
	s.sm = sm

	t.SetMessageHandler(s.enqueue)
	return s
}

// State returns the current connection state.
func (s *Session) State() State {
	return s.sm.MustState().(State)
}

// Connected reports whether the session is connected.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Dropped returns how many inbound messages were discarded on a full inbox.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// Dial connects during startup, retrying with exponential backoff until
// ctx is done. Afterwards only EnsureConnected should be used.
func (s *Session) Dial(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = s.cfg.RetryInterval
	b.MaxElapsedTime = 0

	op := func() error {
		if err := s.attempt(time.Now()); err != nil {
			log.Warn().Err(err).Msg("startup connect failed")
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	return nil
}

// EnsureConnected detects a lost connection and, while disconnected, makes
// at most one connect attempt per retry interval. The first attempt is
// immediate. Returns whether the session is connected.
func (s *Session) EnsureConnected(now time.Time) bool {
	s.checkLost()
	if s.Connected() {
		return true
	}
	if s.attempted && now.Sub(s.lastAttempt) < s.cfg.RetryInterval {
		return false
	}
	if err := s.attempt(now); err != nil {
		log.Warn().Err(err).Dur("retry_in", s.cfg.RetryInterval).Msg("mqtt connect failed")
		return false
	}
	return true
}

func (s *Session) attempt(now time.Time) error {
	s.attempted = true
	s.lastAttempt = now

	if err := s.sm.Fire(triggerDial); err != nil {
		return fmt.Errorf("session state: %w", err)
	}
	if err := s.t.Connect(s.cfg.ConnectTimeout); err != nil {
		s.Metrics.ConnectAttempt(false)
		// The transport may still finish connecting on its own.
		s.t.Disconnect()
		_ = s.sm.Fire(triggerFailed)
		return err
	}
	s.Metrics.ConnectAttempt(true)
	s.connectedAt = now
	if err := s.sm.Fire(triggerConnected); err != nil {
		// Subscription failed; drop the link so the next cycle retries.
		s.t.Disconnect()
		_ = s.sm.Fire(triggerLost)
		return err
	}
	return nil
}

func (s *Session) onConnected(context.Context, ...any) error {
	s.attrRequested = false
	s.attrAttempted = false
	for _, topic := range []string{TopicRPCRequest, TopicAttributes, TopicAttributesResponse} {
		if err := s.t.Subscribe(topic); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	s.Metrics.Connected(true)
	log.Info().Msg("mqtt connected")
	return nil
}

func (s *Session) checkLost() {
	if s.Connected() && !s.t.IsConnected() {
		log.Warn().Msg("mqtt connection lost")
		_ = s.sm.Fire(triggerLost)
	}
}

// maxBusy bounds the overflowed command ids kept for rejection.
const maxBusy = 256

// enqueue runs on transport goroutines.
func (s *Session) enqueue(topic string, payload []byte) {
	select {
	case s.inbox <- message{topic: topic, payload: payload}:
		return
	default:
	}
	s.dropped.Add(1)
	log.Warn().Str("topic", topic).Msg("mqtt inbox full, message dropped")

	if !strings.HasPrefix(topic, topicRPCRequestPrefix) {
		return
	}
	s.busyMu.Lock()
	if len(s.busy) < maxBusy {
		s.busy = append(s.busy, strings.TrimPrefix(topic, topicRPCRequestPrefix))
	}
	s.busyMu.Unlock()
}

// Loop detects a lost connection, dispatches every queued inbound message
// and rejects commands that did not fit in the inbox.
func (s *Session) Loop() {
	s.checkLost()
	for {
		select {
		case m := <-s.inbox:
			s.dispatch(m)
		default:
			s.rejectBusy()
			return
		}
	}
}

func (s *Session) rejectBusy() {
	s.busyMu.Lock()
	ids := s.busy
	s.busy = nil
	s.busyMu.Unlock()

	for _, idStr := range ids {
		log.Warn().Str("request_id", idStr).Msg("command rejected, inbox was full")
		s.ack(idStr, ErrBusy)
	}
}

func (s *Session) dispatch(m message) {
	switch {
	case strings.HasPrefix(m.topic, topicRPCRequestPrefix):
		s.handleCommand(strings.TrimPrefix(m.topic, topicRPCRequestPrefix), m.payload)
	case m.topic == TopicAttributes, strings.HasPrefix(m.topic, topicAttributesResponsePrefix):
		s.handleAttributes(m.topic, m.payload)
	default:
		log.Debug().Str("topic", m.topic).Msg("ignoring message on unexpected topic")
	}
}

func (s *Session) handleCommand(idStr string, payload []byte) {
	id, idErr := strconv.ParseUint(idStr, 10, 64)
	if idErr != nil {
		log.Warn().Str("request_id", idStr).Msg("command without numeric request id")
	}

	var req rpcRequest
	var err error
	if jerr := json.Unmarshal(payload, &req); jerr != nil {
		err = fmt.Errorf("malformed command: %w", jerr)
	} else if s.onCommand == nil {
		err = fmt.Errorf("%w: %s", ErrUnknownMethod, req.Method)
	} else {
		err = s.onCommand(req.Method, req.Params)
	}

	known := req.Method != "" && !errors.Is(err, ErrUnknownMethod)
	s.Metrics.Command(req.Method, known, err == nil)
	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("method", req.Method).Uint64("request_id", id).Msg("command")

	if idErr != nil {
		return
	}
	s.ack(idStr, err)
}

// ack publishes the single response for a numeric request id > 0.
func (s *Session) ack(idStr string, result error) {
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return
	}
	payload, err := FormatAck(result)
	if err != nil {
		log.Error().Err(err).Msg("format ack")
		return
	}
	if err := s.t.Publish(topicRPCResponsePrefix+idStr, payload); err != nil {
		s.Metrics.PublishFailed("ack")
		log.Warn().Err(err).Uint64("request_id", id).Msg("ack publish failed")
	}
}

func (s *Session) handleAttributes(topic string, payload []byte) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil || m == nil {
		log.Warn().Str("topic", topic).Msg("dropping malformed attributes payload")
		return
	}
	if s.onAttributes != nil {
		s.onAttributes(m)
	}
}

// MaybeRequestAttributes publishes one shared attribute request per
// connection, after the grace delay and with failed attempts paced by the
// same delay. Returns true when a request was published.
func (s *Session) MaybeRequestAttributes(now time.Time) bool {
	if !s.Connected() || s.attrRequested {
		return false
	}
	if now.Sub(s.connectedAt) < s.cfg.AttrRequestDelay {
		return false
	}
	if s.attrAttempted && now.Sub(s.lastAttrAttempt) < s.cfg.AttrRequestDelay {
		return false
	}
	s.attrAttempted = true
	s.lastAttrAttempt = now

	id := s.nextAttrID
	s.nextAttrID++
	payload, err := FormatAttributesRequest(s.cfg.SharedKeys)
	if err != nil {
		log.Error().Err(err).Msg("format attributes request")
		return false
	}
	if err := s.t.Publish(topicAttributesRequestPrefix+strconv.FormatUint(id, 10), payload); err != nil {
		s.Metrics.PublishFailed("attributes_request")
		log.Warn().Err(err).Uint64("request_id", id).Msg("attributes request failed")
		return false
	}
	s.attrRequested = true
	log.Info().Uint64("request_id", id).Msg("requested shared attributes")
	return true
}

// PublishTelemetry publishes one telemetry payload. A failure is returned
// but never changes the connection state.
func (s *Session) PublishTelemetry(payload []byte) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	if err := s.t.Publish(TopicTelemetry, payload); err != nil {
		s.Metrics.PublishFailed("telemetry")
		return fmt.Errorf("publish telemetry: %w", err)
	}
	return nil
}

// Close disconnects the transport.
func (s *Session) Close() {
	s.t.Disconnect()
	if s.Connected() {
		_ = s.sm.Fire(triggerLost)
	}
}
