package observability

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// OutcomeResolved is the outcome recorded for successful resolutions.
const OutcomeResolved = "RESOLVED"

// Metrics collects and aggregates metrics for API operations.
type Metrics struct {
	mu sync.Mutex

	// Counters
	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	endpointMetrics map[string]*EndpointMetrics
	outcomes        map[string]int64

	// Recent durations, oldest first, for percentiles.
	durations    []time.Duration
	maxDurations int
}

// EndpointMetrics represents metrics for a specific endpoint.
type EndpointMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000 // Default to keeping last 1000 durations
	}
	return &Metrics{
		endpointMetrics: make(map[string]*EndpointMetrics),
		outcomes:        make(map[string]int64),
		durations:       make([]time.Duration, 0, maxDurations),
		maxDurations:    maxDurations,
	}
}

// Global metrics instance.
var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// Record records one finished request. outcome is OutcomeResolved or an
// error code; anything else counts as a failure.
func (m *Metrics) Record(endpoint, outcome string, duration time.Duration) {
	m.requestTotal.Add(1)
	em := m.getEndpointMetrics(endpoint)
	em.requestCount.Add(1)
	em.totalDuration.Add(duration.Milliseconds())
	if outcome != OutcomeResolved {
		m.requestFailed.Add(1)
		em.errorCount.Add(1)
	}

	m.mu.Lock()
	m.outcomes[outcome]++
	if len(m.durations) >= m.maxDurations {
		// Remove oldest duration (FIFO)
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// GetRequestTotal returns the total number of requests.
func (m *Metrics) GetRequestTotal() int64 {
	return m.requestTotal.Load()
}

// GetRequestFailed returns the total number of failed requests.
func (m *Metrics) GetRequestFailed() int64 {
	return m.requestFailed.Load()
}

func (m *Metrics) getEndpointMetrics(endpoint string) *EndpointMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.endpointMetrics[endpoint]; !ok {
		m.endpointMetrics[endpoint] = &EndpointMetrics{}
	}
	return m.endpointMetrics[endpoint]
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.endpointMetrics = make(map[string]*EndpointMetrics)
	m.outcomes = make(map[string]int64)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	endpoints := make(map[string]*EndpointMetricsSnapshot, len(m.endpointMetrics))
	for name, em := range m.endpointMetrics {
		count := em.requestCount.Load()
		snap := &EndpointMetricsSnapshot{
			RequestCount:  count,
			TotalDuration: em.totalDuration.Load(),
			ErrorCount:    em.errorCount.Load(),
		}
		if count > 0 {
			snap.AverageDuration = snap.TotalDuration / count
		}
		endpoints[name] = snap
	}
	outcomes := make(map[string]int64, len(m.outcomes))
	for k, v := range m.outcomes {
		outcomes[k] = v
	}

	sorted := slices.Clone(m.durations)
	slices.Sort(sorted)

	return &MetricsSnapshot{
		RequestTotal:    m.requestTotal.Load(),
		RequestFailed:   m.requestFailed.Load(),
		EndpointMetrics: endpoints,
		Outcomes:        outcomes,
		DurationCount:   len(sorted),
		P50:             percentile(sorted, 50),
		P95:             percentile(sorted, 95),
		P99:             percentile(sorted, 99),
	}
}

// percentile uses the nearest-rank method on sorted durations.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal    int64
	RequestFailed   int64
	EndpointMetrics map[string]*EndpointMetricsSnapshot
	Outcomes        map[string]int64
	DurationCount   int
	P50             time.Duration
	P95             time.Duration
	P99             time.Duration
}

// EndpointMetricsSnapshot represents metrics for a specific endpoint.
type EndpointMetricsSnapshot struct {
	RequestCount    int64
	TotalDuration   int64
	ErrorCount      int64
	AverageDuration int64
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
