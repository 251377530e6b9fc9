// Package metrics provides basic in-process counters for gvmrun. The process
// runs one scan lifecycle and exits, so metrics are aggregated in memory and
// emitted as a log summary at the end of the run rather than scraped.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// MetricType represents the type of metric.
type MetricType string

const (
	TypeCounter  MetricType = "counter"
	TypeDuration MetricType = "duration"
)

// Labels represents key-value pairs for metric labels.
type Labels map[string]string

// Metric represents a single metric with its metadata.
type Metric struct {
	Name      string
	Type      MetricType
	Value     float64
	Labels    Labels
	Timestamp time.Time
}

// Registry holds all metrics and provides collection functionality.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
	enabled bool
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]*Metric),
		enabled: true,
	}
}

// SetEnabled enables or disables metrics collection.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Counter increments a counter metric.
func (r *Registry) Counter(name string, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}

	key := makeKey(name, labels)
	if metric, exists := r.metrics[key]; exists {
		metric.Value++
		metric.Timestamp = time.Now()
		return
	}
	r.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeCounter,
		Value:     1,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Duration records an elapsed duration in seconds.
func (r *Registry) Duration(name string, elapsed time.Duration, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}

	key := makeKey(name, labels)
	r.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeDuration,
		Value:     elapsed.Seconds(),
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Snapshot returns a copy of all current metrics.
func (r *Registry) Snapshot() []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metric, 0, len(r.metrics))
	for _, m := range r.metrics {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return makeKey(out[i].Name, out[i].Labels) < makeKey(out[j].Name, out[j].Labels)
	})
	return out
}

// Reset clears all metrics from the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = make(map[string]*Metric)
}

func makeKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := name
	for _, k := range keys {
		key += "," + k + "=" + labels[k]
	}
	return key
}

// Global registry instance - can be replaced for testing.
var globalRegistry = NewRegistry()

// Global returns the process-wide registry.
func Global() *Registry {
	return globalRegistry
}

// Convenience helpers used by the scan lifecycle.

// IncrementCommands counts one GMP command exchange.
func IncrementCommands(command string) {
	globalRegistry.Counter("gmp_commands_total", Labels{"command": command})
}

// IncrementPolls counts one iteration of a polling loop.
func IncrementPolls(stage string) {
	globalRegistry.Counter("poll_iterations_total", Labels{"stage": stage})
}

// RecordStageDuration records how long a lifecycle stage took.
func RecordStageDuration(stage string, elapsed time.Duration) {
	globalRegistry.Duration("stage_duration_seconds", elapsed, Labels{"stage": stage})
}
