package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// PahoConfig configures a PahoTransport.
type PahoConfig struct {
	Broker         string
	ClientID       string
	AccessToken    string
	PublishTimeout time.Duration
}

// PahoTransport is a Transport over an actual MQTT broker.
// Reconnection is driven by the session, not by paho.
type PahoTransport struct {
	client         paho.Client
	publishTimeout time.Duration

	mu      sync.RWMutex
	handler func(topic string, payload []byte)
}

// NewPahoTransport creates an unconnected transport.
func NewPahoTransport(cfg PahoConfig) *PahoTransport {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.AccessToken).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetCleanSession(true).
		SetKeepAlive(30 * time.Second)

	return &PahoTransport{
		client:         paho.NewClient(opts),
		publishTimeout: cfg.PublishTimeout,
	}
}

// Connect performs one bounded connect attempt.
func (p *PahoTransport) Connect(timeout time.Duration) error {
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		// Abandon the pending attempt so a late CONNACK cannot leave the
		// client connected behind the session's back.
		p.client.Disconnect(0)
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is connected.
func (p *PahoTransport) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends payload at QoS 0, not retained.
func (p *PahoTransport) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe subscribes at QoS 0 and routes messages to the registered handler.
func (p *PahoTransport) Subscribe(topic string) error {
	token := p.client.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
		p.mu.RLock()
		h := p.handler
		p.mu.RUnlock()
		if h != nil {
			h(m.Topic(), m.Payload())
		}
	})
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// SetMessageHandler registers the inbound message callback.
func (p *PahoTransport) SetMessageHandler(h func(topic string, payload []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Disconnect closes the connection.
func (p *PahoTransport) Disconnect() {
	p.client.Disconnect(1000) // 1 second timeout
}
