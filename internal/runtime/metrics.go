package runtime

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "kafkaflow"

// pipelineMetrics counts what the parse and decode steps did per handler.
type pipelineMetrics struct {
	parsed         *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	decodeDuration *prometheus.HistogramVec
}

func newPipelineMetrics(registerer prometheus.Registerer) (*pipelineMetrics, error) {
	m := &pipelineMetrics{
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parsed_total",
			Help:      "Total number of records and batches normalized into messages",
		}, []string{"handler", "kind"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_failures_total",
			Help:      "Total number of messages whose body could not be decoded",
		}, []string{"handler"}),
		decodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding message bodies",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"handler"}),
	}

	var err error
	if m.parsed, err = register(registerer, m.parsed); err != nil {
		return nil, err
	}
	if m.decodeFailures, err = register(registerer, m.decodeFailures); err != nil {
		return nil, err
	}
	if m.decodeDuration, err = register(registerer, m.decodeDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adopts an already registered collector of the same shape.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *pipelineMetrics) observeParsed(handler string, kind HandlerKind) {
	m.parsed.WithLabelValues(handler, string(kind)).Inc()
}

func (m *pipelineMetrics) observeDecode(handler string, started time.Time, err error) {
	m.decodeDuration.WithLabelValues(handler).Observe(time.Since(started).Seconds())
	if err != nil {
		m.decodeFailures.WithLabelValues(handler).Inc()
	}
}
