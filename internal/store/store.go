// Package store persists small typed key/value preferences grouped by
// namespace. Values written through a Prefs handle are committed together
// when the handle is closed.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrReadOnly is returned by Put methods on a handle opened ReadOnly.
	ErrReadOnly = errors.New("store: namespace opened read-only")
	// ErrStoreUnavailable is returned when the backing store cannot be opened.
	ErrStoreUnavailable = errors.New("store: unavailable")
)

// Mode selects how a namespace is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Store opens namespaces.
type Store interface {
	Open(ctx context.Context, namespace string, mode Mode) (*Prefs, error)
}

// commitFunc persists the pending values of one handle.
type commitFunc func(ctx context.Context, namespace string, pending map[string]string) error

// Prefs is an open namespace. Getters fall back to the supplied default when
// a key is missing or cannot be parsed.
type Prefs struct {
	ctx       context.Context
	namespace string
	mode      Mode
	values    map[string]string
	pending   map[string]string
	commit    commitFunc
	closed    bool
}

func newPrefs(ctx context.Context, namespace string, mode Mode, values map[string]string, commit commitFunc) *Prefs {
	if values == nil {
		values = map[string]string{}
	}
	return &Prefs{
		ctx:       ctx,
		namespace: namespace,
		mode:      mode,
		values:    values,
		pending:   map[string]string{},
		commit:    commit,
	}
}

// Has reports whether key exists.
func (p *Prefs) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Prefs) String(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

func (p *Prefs) Uint32(key string, def uint32) uint32 {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return uint32(n)
}

func (p *Prefs) Int(key string, def int) int {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (p *Prefs) Float(key string, def float64) float64 {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (p *Prefs) Bool(key string, def bool) bool {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (p *Prefs) put(key, value string) error {
	if p.mode != ReadWrite {
		return ErrReadOnly
	}
	if p.closed {
		return fmt.Errorf("store: put %s/%s after close", p.namespace, key)
	}
	p.values[key] = value
	p.pending[key] = value
	return nil
}

func (p *Prefs) PutString(key, v string) error { return p.put(key, v) }

func (p *Prefs) PutUint32(key string, v uint32) error {
	return p.put(key, strconv.FormatUint(uint64(v), 10))
}

func (p *Prefs) PutInt(key string, v int) error { return p.put(key, strconv.Itoa(v)) }

func (p *Prefs) PutFloat(key string, v float64) error {
	return p.put(key, strconv.FormatFloat(v, 'g', -1, 64))
}

func (p *Prefs) PutBool(key string, v bool) error { return p.put(key, strconv.FormatBool(v)) }

// Close commits pending writes. Closing twice is a no-op.
func (p *Prefs) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if len(p.pending) == 0 || p.commit == nil {
		return nil
	}
	if err := p.commit(p.ctx, p.namespace, p.pending); err != nil {
		return fmt.Errorf("commit %s: %w", p.namespace, err)
	}
	return nil
}
