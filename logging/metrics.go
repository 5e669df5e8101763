package logging

import "sync"

// Metrics is a set of named monotonic counters and gauges. The zero value is
// ready to use.
type Metrics struct {
	mu     sync.Mutex
	values map[string]uint64
}

// Add increments key by delta.
func (m *Metrics) Add(key string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] += delta
	m.mu.Unlock()
}

// Store records value for key only if it is larger than the current value, so
// a stored gauge never hides increments made through Add.
func (m *Metrics) Store(key string, value uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	if value > m.values[key] {
		m.values[key] = value
	}
	m.mu.Unlock()
}

// TelemetryAdd and TelemetryStore satisfy the telemetry adapter.
func (m *Metrics) TelemetryAdd(key string, delta uint64) { m.Add(key, delta) }

func (m *Metrics) TelemetryStore(key string, value uint64) { m.Store(key, value) }

// Snapshot returns a copy of every counter.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
