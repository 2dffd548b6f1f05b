package telemetry

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry records per-node timings, invocation outcomes and external
// source calls. Counters are exported through a private prometheus registry.
type Telemetry struct {
	logger   *log.Logger
	registry *prometheus.Registry

	mu      sync.RWMutex
	metrics *Metrics

	nodeDuration  *prometheus.HistogramVec
	nodeRuns      *prometheus.CounterVec
	invocations   *prometheus.CounterVec
	cycles        prometheus.Histogram
	sourceCalls   *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec
	ingestJobs    *prometheus.CounterVec
}

// Metrics is an in-process snapshot of what has been recorded.
type Metrics struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	CapReached         int64

	AgentExecutions   map[string]int64
	AgentFailures     map[string]int64
	AgentAverageTimes map[string]time.Duration

	SourceRequests map[string]int64
	SourceFailures map[string]int64

	IngestJobs map[string]int64
}

// ProcessingEvent describes one routed chat invocation.
type ProcessingEvent struct {
	ID                 string
	StartTime          time.Time
	EndTime            time.Time
	Cycles             int
	Success            bool
	MaxRetriesExceeded bool
	AnswerSource       string
	Error              string
}

// AgentEvent describes one node execution inside an invocation.
type AgentEvent struct {
	ID        string
	AgentType string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Success   bool
	Error     string
}

// SourceEvent describes one call to an external collaborator (search, travel API, vector store).
type SourceEvent struct {
	Source   string
	Duration time.Duration
	Success  bool
	Results  int
	Error    string
}

// NewTelemetry builds collectors on a fresh registry. A nil logger logs to the
// standard logger with a [TELEMETRY] prefix.
func NewTelemetry(logger *log.Logger) *Telemetry {
	if logger == nil {
		logger = log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags)
	}
	t := &Telemetry{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		metrics: &Metrics{
			AgentExecutions:   make(map[string]int64),
			AgentFailures:     make(map[string]int64),
			AgentAverageTimes: make(map[string]time.Duration),
			SourceRequests:    make(map[string]int64),
			SourceFailures:    make(map[string]int64),
			IngestJobs:        make(map[string]int64),
		},
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragagent_node_duration_seconds",
			Help:    "Time spent in each agent node.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node"}),
		nodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragagent_node_runs_total",
			Help: "Agent node executions by outcome.",
		}, []string{"node", "status"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragagent_invocations_total",
			Help: "Routed chat invocations by outcome.",
		}, []string{"outcome"}),
		cycles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragagent_invocation_cycles",
			Help:    "Routing cycles consumed per invocation.",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}),
		sourceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragagent_source_calls_total",
			Help: "Calls to external collaborators by outcome.",
		}, []string{"source", "status"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragagent_source_duration_seconds",
			Help:    "Latency of external collaborator calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		ingestJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragagent_ingest_jobs_total",
			Help: "Document ingestion jobs by terminal status.",
		}, []string{"status"}),
	}
	t.registry.MustRegister(t.nodeDuration, t.nodeRuns, t.invocations, t.cycles, t.sourceCalls, t.sourceLatency, t.ingestJobs)
	return t
}

// Discard returns a Telemetry that records metrics but writes no logs.
func Discard() *Telemetry {
	return NewTelemetry(log.New(io.Discard, "", 0))
}

// Handler serves the prometheus exposition format for this registry.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// TimeNode starts timing a node; the returned func records the outcome.
func (t *Telemetry) TimeNode(ctx context.Context, id, node string) func(err error) {
	start := time.Now()
	return func(err error) {
		end := time.Now()
		ev := AgentEvent{ID: id, AgentType: node, StartTime: start, EndTime: end, Duration: end.Sub(start), Success: err == nil}
		if err != nil {
			ev.Error = err.Error()
		}
		t.RecordAgentEvent(ctx, ev)
	}
}

// RecordAgentEvent records a node execution.
func (t *Telemetry) RecordAgentEvent(ctx context.Context, event AgentEvent) {
	t.nodeDuration.WithLabelValues(event.AgentType).Observe(event.Duration.Seconds())
	t.nodeRuns.WithLabelValues(event.AgentType, status(event.Success)).Inc()

	t.mu.Lock()
	n := t.metrics.AgentExecutions[event.AgentType]
	avg := t.metrics.AgentAverageTimes[event.AgentType]
	t.metrics.AgentAverageTimes[event.AgentType] = (avg*time.Duration(n) + event.Duration) / time.Duration(n+1)
	t.metrics.AgentExecutions[event.AgentType] = n + 1
	if !event.Success {
		t.metrics.AgentFailures[event.AgentType]++
	}
	t.mu.Unlock()

	t.logger.Printf("node %s took %.2fs (success=%t)", event.AgentType, event.Duration.Seconds(), event.Success)
}

// RecordProcessingEvent records the outcome of a routed chat invocation.
func (t *Telemetry) RecordProcessingEvent(ctx context.Context, event ProcessingEvent) {
	outcome := "valid"
	switch {
	case event.Error != "":
		outcome = "error"
	case event.MaxRetriesExceeded:
		outcome = "max_retries_exceeded"
	case !event.Success:
		outcome = "invalid"
	}
	t.invocations.WithLabelValues(outcome).Inc()
	t.cycles.Observe(float64(event.Cycles))

	t.mu.Lock()
	t.metrics.TotalRequests++
	if event.Success {
		t.metrics.SuccessfulRequests++
	} else {
		t.metrics.FailedRequests++
	}
	if event.MaxRetriesExceeded {
		t.metrics.CapReached++
	}
	t.mu.Unlock()

	t.logger.Printf("Processing Event: ID=%s, Outcome=%s, Cycles=%d, Duration=%v, Source=%s",
		event.ID, outcome, event.Cycles, event.EndTime.Sub(event.StartTime), event.AnswerSource)
}

// RecordSourceEvent records a call to an external collaborator.
func (t *Telemetry) RecordSourceEvent(ctx context.Context, event SourceEvent) {
	t.sourceCalls.WithLabelValues(event.Source, status(event.Success)).Inc()
	t.sourceLatency.WithLabelValues(event.Source).Observe(event.Duration.Seconds())

	t.mu.Lock()
	t.metrics.SourceRequests[event.Source]++
	if !event.Success {
		t.metrics.SourceFailures[event.Source]++
	}
	t.mu.Unlock()

	if !event.Success {
		t.logger.Printf("Source Event: Source=%s failed after %v: %s", event.Source, event.Duration, event.Error)
	}
}

// RecordIngestJob counts a finished ingestion job.
func (t *Telemetry) RecordIngestJob(status string) {
	t.ingestJobs.WithLabelValues(status).Inc()
	t.mu.Lock()
	t.metrics.IngestJobs[status]++
	t.mu.Unlock()
}

// GetMetrics returns a deep copy of the current metrics.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := Metrics{
		TotalRequests:      t.metrics.TotalRequests,
		SuccessfulRequests: t.metrics.SuccessfulRequests,
		FailedRequests:     t.metrics.FailedRequests,
		CapReached:         t.metrics.CapReached,
		AgentExecutions:    make(map[string]int64, len(t.metrics.AgentExecutions)),
		AgentFailures:      make(map[string]int64, len(t.metrics.AgentFailures)),
		AgentAverageTimes:  make(map[string]time.Duration, len(t.metrics.AgentAverageTimes)),
		SourceRequests:     make(map[string]int64, len(t.metrics.SourceRequests)),
		SourceFailures:     make(map[string]int64, len(t.metrics.SourceFailures)),
		IngestJobs:         make(map[string]int64, len(t.metrics.IngestJobs)),
	}
	for k, v := range t.metrics.AgentExecutions {
		out.AgentExecutions[k] = v
	}
	for k, v := range t.metrics.AgentFailures {
		out.AgentFailures[k] = v
	}
	for k, v := range t.metrics.AgentAverageTimes {
		out.AgentAverageTimes[k] = v
	}
	for k, v := range t.metrics.SourceRequests {
		out.SourceRequests[k] = v
	}
	for k, v := range t.metrics.SourceFailures {
		out.SourceFailures[k] = v
	}
	for k, v := range t.metrics.IngestJobs {
		out.IngestJobs[k] = v
	}
	return out
}

// Shutdown logs a final report.
func (t *Telemetry) Shutdown() {
	m := t.GetMetrics()
	t.logger.Printf("Final Report:")
	t.logger.Printf("  Total Requests: %d", m.TotalRequests)
	if m.TotalRequests > 0 {
		t.logger.Printf("  Success Rate: %.2f%%", float64(m.SuccessfulRequests)/float64(m.TotalRequests)*100)
	}
	t.logger.Printf("  Retry Cap Reached: %d", m.CapReached)
	for node, n := range m.AgentExecutions {
		t.logger.Printf("  Node %s: runs=%d failures=%d avg=%v", node, n, m.AgentFailures[node], m.AgentAverageTimes[node])
	}
}
