package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

type entry struct {
	data     []byte
	expireAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// Memory is an in-process Store with lazy expiry plus a background
// sweep. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
	done  chan struct{}
	once  sync.Once
}

// NewMemory creates an in-memory cache and starts its cleanup loop.
func NewMemory() *Memory {
	m := &Memory{
		items: make(map[string]entry),
		done:  make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = entry{data: data, expireAt: expireAt}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		if ok {
			m.mu.Lock()
			delete(m.items, key)
			m.mu.Unlock()
		}
		return ErrCacheMiss
	}
	return json.Unmarshal(e.data, dest)
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.items, key)
	}
	m.mu.Unlock()
	return nil
}

// Len reports the number of live entries, expired ones included until
// the next sweep.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the cleanup loop.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.items {
				if e.expired(now) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
