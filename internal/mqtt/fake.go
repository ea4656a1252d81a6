package mqtt

import (
	"strings"
	"sync"
	"time"
)

// Published is one recorded publish.
type Published struct {
	Topic   string
	Payload []byte
}

// FakeTransport records publishes and subscriptions for test assertions.
type FakeTransport struct {
	mu sync.Mutex

	connected bool
	handler   func(topic string, payload []byte)

	// Published contains every successful publish in order.
	Published []Published

	// Subscriptions contains every subscribed topic in order.
	Subscriptions []string

	// ConnectCalls counts Connect attempts.
	ConnectCalls int

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// ConnectLate makes a failing Connect still leave the link open, the
	// way a CONNACK arriving after the timeout does.
	ConnectLate bool

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Disconnected tracks if Disconnect was called.
	Disconnected bool
}

// NewFakeTransport creates a disconnected FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (f *FakeTransport) Connect(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++
	if f.ConnectError != nil {
		f.connected = f.ConnectLate
		return f.ConnectError
	}
	f.connected = true
	return nil
}

func (f *FakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeTransport) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Published{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

func (f *FakeTransport) Subscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Subscriptions = append(f.Subscriptions, topic)
	return nil
}

func (f *FakeTransport) SetMessageHandler(h func(topic string, payload []byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *FakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.Disconnected = true
}

// Drop simulates a lost connection.
func (f *FakeTransport) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

// Deliver simulates an inbound message, calling the handler synchronously.
func (f *FakeTransport) Deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

// PublishedTo returns the publishes whose topic has the given prefix.
func (f *FakeTransport) PublishedTo(prefix string) []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Published
	for _, p := range f.Published {
		if strings.HasPrefix(p.Topic, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears recorded publishes and subscriptions.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = nil
	f.Subscriptions = nil
	f.ConnectCalls = 0
}
