package core

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics counts dispatcher activity. Values are read back by the stats
// command; the listener does not serve them over HTTP.
type Metrics struct {
	polls    *prometheus.CounterVec
	messages *prometheus.CounterVec
	cursor   prometheus.Gauge
}

// NewMetrics creates dispatcher metrics and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "backupbot",
				Subsystem: "listener",
				Name:      "polls_total",
				Help:      "Fetches against the transport partitioned by result.",
			},
			[]string{"result"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "backupbot",
				Subsystem: "listener",
				Name:      "messages_total",
				Help:      "Messages dispatched partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		cursor: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "backupbot",
				Subsystem: "listener",
				Name:      "cursor_position",
				Help:      "Highest update sequence id consumed.",
			},
		),
	}
	for _, o := range []FetchOutcome{NoNewMessages, MessagesReceived, TransportFailure} {
		m.polls.WithLabelValues(o.String())
	}
	for _, o := range []Outcome{OutcomeDropped, OutcomeEmpty, OutcomeHandled, OutcomeUnrecognized, OutcomeFailed} {
		m.messages.WithLabelValues(o.String())
	}
	if reg != nil {
		reg.MustRegister(m.polls, m.messages, m.cursor)
	}
	return m
}

func (m *Metrics) observePoll(o FetchOutcome) {
	m.polls.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeMessage(o Outcome) {
	m.messages.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) setCursor(pos int64) {
	m.cursor.Set(float64(pos))
}

// MetricsSnapshot is a copy of the current metric values.
type MetricsSnapshot struct {
	Polls             int64
	TransportFailures int64
	Handled           int64
	Unrecognized      int64
	Failed            int64
	Dropped           int64
	Cursor            int64
}

// String renders the snapshot for chat replies.
func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("Listener: %d polls (%d failed), %d handled, %d unrecognized, %d failed, %d dropped, cursor %d",
		s.Polls, s.TransportFailures, s.Handled, s.Unrecognized, s.Failed, s.Dropped, s.Cursor)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	var polls int64
	for _, o := range []FetchOutcome{NoNewMessages, MessagesReceived, TransportFailure} {
		polls += counterValue(m.polls.WithLabelValues(o.String()))
	}
	return MetricsSnapshot{
		Polls:             polls,
		TransportFailures: counterValue(m.polls.WithLabelValues(TransportFailure.String())),
		Handled:           counterValue(m.messages.WithLabelValues(OutcomeHandled.String())),
		Unrecognized:      counterValue(m.messages.WithLabelValues(OutcomeUnrecognized.String())),
		Failed:            counterValue(m.messages.WithLabelValues(OutcomeFailed.String())),
		Dropped:           counterValue(m.messages.WithLabelValues(OutcomeDropped.String())),
		Cursor:            int64(metricValue(m.cursor).GetGauge().GetValue()),
	}
}

func counterValue(c prometheus.Counter) int64 {
	return int64(metricValue(c).GetCounter().GetValue())
}

func metricValue(c prometheus.Metric) *dto.Metric {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return &dto.Metric{}
	}
	return &out
}
