// Package metrics exports Prometheus counters for dispatched commands.
package metrics

import (
	"strconv"
	"sync"

	"zonectl/internal/protocol"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonectl",
			Name:      "commands_total",
			Help:      "Commands dispatched to the relay, by outcome.",
		},
		[]string{"command", "zone", "outcome", "kind"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zonectl",
			Name:      "command_duration_seconds",
			Help:      "Time from frame write to acknowledgment or timeout.",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.3, 0.5, 0.75, 1, 1.5, 2},
		},
		[]string{"outcome"},
	)
	tableAnomalies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zonectl",
			Name:      "table_anomalies_total",
			Help:      "Malformed or suspicious rows seen while loading the command table.",
		},
	)
)

// RegisterMetrics registers the collectors with the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, commandDuration, tableAnomalies)
	})
}

// Fixed command labels for names that do not come from the command table.
const (
	UnknownCommandLabel = "<unknown>"
	RawCommandLabel     = "raw"
)

// RecordResult counts one execution of a table command. Results that never
// reached the transport are counted but not timed.
func RecordResult(r protocol.Result) {
	record(r, false)
}

// RecordRawResult counts an explicit zone/opcode send. Its caller-chosen name
// is not used as a label.
func RecordRawResult(r protocol.Result) {
	record(r, true)
}

func record(r protocol.Result, raw bool) {
	zone := ""
	if r.ResolvedZone() {
		zone = strconv.Itoa(int(r.Zone))
	}
	commandsTotal.WithLabelValues(commandLabel(r, raw), zone, string(r.Outcome), string(r.Kind)).Inc()

	if r.ElapsedMs > 0 {
		commandDuration.WithLabelValues(string(r.Outcome)).Observe(r.ElapsedMs / 1000)
	}
}

// commandLabel keeps the label set bounded by the command table.
func commandLabel(r protocol.Result, raw bool) string {
	switch {
	case raw:
		return RawCommandLabel
	case r.Kind == protocol.KindCommandNotFound:
		return UnknownCommandLabel
	default:
		return r.Command
	}
}

func RecordTableAnomalies(n int) {
	if n > 0 {
		tableAnomalies.Add(float64(n))
	}
}
