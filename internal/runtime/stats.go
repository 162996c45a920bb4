package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BindingStats accumulates dispatch counters for one binding.
type BindingStats struct {
	mu sync.Mutex

	subject string
	queue   string

	MessagesProcessed   uint64    `json:"messages_processed"`
	MessagesFailed      uint64    `json:"messages_failed"`
	TotalProcessingTime int64     `json:"total_processing_time_ns"`
	LastProcessedAt     time.Time `json:"last_processed_at"`
	LastError           string    `json:"last_error,omitempty"`
}

// BindingInfo describes one registered binding and its live stats.
type BindingInfo struct {
	Subject string        `json:"subject"`
	Queue   string        `json:"queue,omitempty"`
	Stats   *BindingStats `json:"stats"`
}

func newBindingStats(subject, queue string) *BindingStats {
	return &BindingStats{subject: subject, queue: queue}
}

func (st *BindingStats) onMessageFinish(duration time.Duration, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.TotalProcessingTime += duration.Nanoseconds()
	st.LastProcessedAt = time.Now()
	if err != nil {
		st.MessagesFailed++
		st.LastError = err.Error()
		return
	}
	st.MessagesProcessed++
}

// Snapshot returns a race-free copy of the counters.
func (st *BindingStats) Snapshot() BindingStats {
	st.mu.Lock()
	defer st.mu.Unlock()

	return BindingStats{
		subject:             st.subject,
		queue:               st.queue,
		MessagesProcessed:   st.MessagesProcessed,
		MessagesFailed:      st.MessagesFailed,
		TotalProcessingTime: st.TotalProcessingTime,
		LastProcessedAt:     st.LastProcessedAt,
		LastError:           st.LastError,
	}
}

// dispatchMetrics holds the Prometheus collectors shared by all bindings.
type dispatchMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	restarts prometheus.Counter
}

func newDispatchMetrics(registerer prometheus.Registerer) *dispatchMetrics {
	return &dispatchMetrics{
		requests: registerCollector(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "replyflow",
				Name:      "dispatch_requests_total",
				Help:      "Requests dispatched to reply handlers, by subject and outcome.",
			},
			[]string{"subject", "outcome"},
		)),
		duration: registerCollector(registerer, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "replyflow",
				Name:      "dispatch_duration_seconds",
				Help:      "Time spent decoding, handling, and replying to one request.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"subject"},
		)),
		restarts: registerCollector(registerer, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "replyflow",
				Name:      "restarts_total",
				Help:      "Dispatch loop restarts triggered by the supervisor.",
			},
		)),
	}
}

func (m *dispatchMetrics) observe(subject string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(subject, outcome).Inc()
	m.duration.WithLabelValues(subject).Observe(duration.Seconds())
}

// registerCollector tolerates re-registration so multiple services can share
// one registerer.
func registerCollector[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(C)
		}
		panic(err)
	}
	return collector
}
