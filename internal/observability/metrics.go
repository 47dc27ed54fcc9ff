package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renderd",
			Subsystem: "worker",
			Name:      "commands_total",
			Help:      "Commands applied, by rank, opcode and outcome.",
		},
		[]string{"rank", "opcode", "success"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "renderd",
			Subsystem: "worker",
			Name:      "command_duration_seconds",
			Help:      "Command handling time in seconds, including collective waits.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"rank", "opcode"},
	)
	votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renderd",
			Subsystem: "collective",
			Name:      "votes_total",
			Help:      "Collective creation and region votes decided, by opcode and result.",
		},
		[]string{"opcode", "accepted"},
	)
	boundHandles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "renderd",
			Subsystem: "worker",
			Name:      "bound_handles",
			Help:      "Handles currently bound on a rank.",
		},
		[]string{"rank"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renderd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "renderd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, commandDuration, votesTotal, boundHandles, httpRequests, httpDuration)
	})
}

func RecordCommand(rank int, opcode string, duration time.Duration, success bool) {
	RegisterMetrics()
	rankLabel := strconv.Itoa(rank)
	commandsTotal.WithLabelValues(rankLabel, opcode, strconv.FormatBool(success)).Inc()
	commandDuration.WithLabelValues(rankLabel, opcode).Observe(duration.Seconds())
}

func RecordVote(opcode string, accepted bool) {
	RegisterMetrics()
	votesTotal.WithLabelValues(opcode, strconv.FormatBool(accepted)).Inc()
}

func SetBoundHandles(rank int, n int) {
	RegisterMetrics()
	boundHandles.WithLabelValues(strconv.Itoa(rank)).Set(float64(n))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
