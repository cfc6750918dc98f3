package performance

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// operationDuration mirrors every recorded timing so it can be scraped.
var operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "wordgrid_operation_duration_seconds",
	Help:    "Duration of timed grid operations",
	Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
}, []string{"operation"})

// Profiler tracks timing statistics per named operation.
// A nil *Profiler is valid and records nothing.
type Profiler struct {
	mu        sync.RWMutex
	metrics   map[string]*Metric
	enabled   atomic.Bool
	startTime time.Time
}

// Metric holds the statistics of one operation.
type Metric struct {
	Name      string
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
	LastTime  time.Duration
	LastCall  time.Time
}

// Operation is a single timing in progress.
type Operation struct {
	profiler *Profiler
	name     string
	start    time.Time
}

// NewProfiler creates a profiler.
func NewProfiler(enabled bool) *Profiler {
	p := &Profiler{
		metrics:   make(map[string]*Metric),
		startTime: time.Now(),
	}
	p.enabled.Store(enabled)
	return p
}

// Start begins timing name. It returns nil when profiling is off; End on a
// nil Operation is a no-op.
func (p *Profiler) Start(name string) *Operation {
	if !p.IsEnabled() {
		return nil
	}
	return &Operation{
		profiler: p,
		name:     name,
		start:    time.Now(),
	}
}

// End stops the timing and records it.
func (o *Operation) End() {
	if o == nil {
		return
	}
	o.profiler.Record(o.name, time.Since(o.start))
}

// Record adds a duration for name.
func (p *Profiler) Record(name string, duration time.Duration) {
	if !p.IsEnabled() {
		return
	}
	operationDuration.WithLabelValues(name).Observe(duration.Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()

	metric, exists := p.metrics[name]
	if !exists {
		metric = &Metric{
			Name:    name,
			MinTime: duration,
			MaxTime: duration,
		}
		p.metrics[name] = metric
	}

	metric.Count++
	metric.TotalTime += duration
	metric.LastTime = duration
	metric.LastCall = time.Now()
	metric.MinTime = min(metric.MinTime, duration)
	metric.MaxTime = max(metric.MaxTime, duration)
}

// GetMetric returns a copy of the statistics for name, or nil.
func (p *Profiler) GetMetric(name string) *Metric {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	metric, ok := p.metrics[name]
	if !ok {
		return nil
	}
	copied := *metric
	return &copied
}

// GetMetrics returns copies of all statistics keyed by operation.
func (p *Profiler) GetMetrics() map[string]*Metric {
	result := make(map[string]*Metric)
	if p == nil {
		return result
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, metric := range p.metrics {
		copied := *metric
		result[name] = &copied
	}
	return result
}

// AverageTime returns the mean duration.
func (m *Metric) AverageTime() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Count)
}

// Reset clears all statistics.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = make(map[string]*Metric)
	p.startTime = time.Now()
}

// sortedNames returns operation names in a stable order. Caller holds the lock.
func (p *Profiler) sortedNames() []string {
	names := make([]string, 0, len(p.metrics))
	for name := range p.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report renders a plain-text table of all operations.
func (p *Profiler) Report() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.metrics) == 0 {
		return "No performance metrics recorded"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Performance Report (since %s) ===\n", p.startTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "%-30s %10s %12s %12s %12s %12s\n", "Operation", "Count", "Avg", "Min", "Max", "Last")
	b.WriteString(strings.Repeat("-", 92) + "\n")

	for _, name := range p.sortedNames() {
		metric := p.metrics[name]
		fmt.Fprintf(&b, "%-30s %10d %12s %12s %12s %12s\n",
			name,
			metric.Count,
			metric.AverageTime().Round(time.Microsecond),
			metric.MinTime.Round(time.Microsecond),
			metric.MaxTime.Round(time.Microsecond),
			metric.LastTime.Round(time.Microsecond),
		)
	}

	fmt.Fprintf(&b, "\nTotal runtime: %s\n", time.Since(p.startTime).Round(time.Second))
	return b.String()
}

// LogReport writes one log line per operation.
func (p *Profiler) LogReport() {
	for name, metric := range p.GetMetrics() {
		log.Info().
			Str("operation", name).
			Int64("count", metric.Count).
			Dur("avg", metric.AverageTime()).
			Dur("max", metric.MaxTime).
			Msg("performance")
	}
}

// MetricJSON is the JSON form of a Metric. Durations are in milliseconds.
type MetricJSON struct {
	Name     string    `json:"name"`
	Count    int64     `json:"count"`
	TotalMS  float64   `json:"total_time_ms"`
	AvgMS    float64   `json:"avg_time_ms"`
	MinMS    float64   `json:"min_time_ms"`
	MaxMS    float64   `json:"max_time_ms"`
	LastMS   float64   `json:"last_time_ms"`
	LastCall time.Time `json:"last_call"`
}

// ReportJSON is the JSON performance report.
type ReportJSON struct {
	Enabled   bool                   `json:"enabled"`
	StartTime time.Time              `json:"start_time"`
	RuntimeMS float64                `json:"runtime_ms"`
	Metrics   map[string]*MetricJSON `json:"metrics"`
}

// JSONReport renders the report as indented JSON.
func (p *Profiler) JSONReport() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	report := ReportJSON{
		Enabled:   p.enabled.Load(),
		StartTime: p.startTime,
		RuntimeMS: ms(time.Since(p.startTime)),
		Metrics:   make(map[string]*MetricJSON),
	}
	for name, metric := range p.metrics {
		report.Metrics[name] = &MetricJSON{
			Name:     metric.Name,
			Count:    metric.Count,
			TotalMS:  ms(metric.TotalTime),
			AvgMS:    ms(metric.AverageTime()),
			MinMS:    ms(metric.MinTime),
			MaxMS:    ms(metric.MaxTime),
			LastMS:   ms(metric.LastTime),
			LastCall: metric.LastCall,
		}
	}
	return json.MarshalIndent(report, "", "  ")
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Enable turns profiling on.
func (p *Profiler) Enable() {
	p.enabled.Store(true)
}

// Disable turns profiling off. Recorded statistics are kept.
func (p *Profiler) Disable() {
	p.enabled.Store(false)
}

// IsEnabled reports whether profiling is on.
func (p *Profiler) IsEnabled() bool {
	return p != nil && p.enabled.Load()
}
