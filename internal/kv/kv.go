// Package kv is the string key-value store drafts are persisted in.
package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrEmptyKey = errors.New("kv: empty key")

// Store is a durable string key-value store scoped to one client.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Memory is a Store kept in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys lists the stored keys in lexical order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Prefixed namespaces every key of an underlying store.
type Prefixed struct {
	prefix string
	next   Store
}

// WithPrefix scopes next to keys starting with prefix. The HTTP host uses
// one prefix per signed-in user so that drafts of different users never
// meet, the way separate browsers keep separate storage.
func WithPrefix(next Store, prefix string) *Prefixed {
	return &Prefixed{prefix: prefix, next: next}
}

func (p *Prefixed) key(k string) (string, error) {
	if k == "" {
		return "", ErrEmptyKey
	}
	return p.prefix + k, nil
}

func (p *Prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	k, err := p.key(key)
	if err != nil {
		return "", false, err
	}
	return p.next.Get(ctx, k)
}

func (p *Prefixed) Set(ctx context.Context, key, value string) error {
	k, err := p.key(key)
	if err != nil {
		return err
	}
	return p.next.Set(ctx, k, value)
}

func (p *Prefixed) Delete(ctx context.Context, key string) error {
	k, err := p.key(key)
	if err != nil {
		return err
	}
	return p.next.Delete(ctx, k)
}

// Unprefix strips the namespace from a key of the underlying store.
func (p *Prefixed) Unprefix(key string) (string, bool) {
	return strings.CutPrefix(key, p.prefix)
}
