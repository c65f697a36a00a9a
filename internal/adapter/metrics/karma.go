package metrics

import "github.com/prometheus/client_golang/prometheus"

// KarmaMetrics holds Prometheus metrics for the karma pipeline and commands.
type KarmaMetrics struct {
	MessagesProcessed  *prometheus.CounterVec
	ChangesParsed      *prometheus.CounterVec
	VotesApplied       *prometheus.CounterVec
	SaveFailures       prometheus.Counter
	CommandsHandled    *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
}

// NewKarmaMetrics creates and registers karma metrics on the given registry.
func NewKarmaMetrics(reg prometheus.Registerer) *KarmaMetrics {
	m := &KarmaMetrics{
		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Total number of chat lines processed, by result.",
		}, []string{"result"}),
		ChangesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "karma_changes_parsed_total",
			Help:      "Total number of karma changes extracted from chat lines, by style.",
		}, []string{"style"}),
		VotesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "karma_votes_applied_total",
			Help:      "Total number of votes persisted, by direction.",
		}, []string{"direction"}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "karma_save_failures_total",
			Help:      "Total number of karma records that failed to persist.",
		}),
		CommandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_handled_total",
			Help:      "Total number of karma commands handled, by command and result.",
		}, []string{"command", "result"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_duration_seconds",
			Help:      "Duration of chat line processing in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	reg.MustRegister(m.MessagesProcessed, m.ChangesParsed, m.VotesApplied, m.SaveFailures, m.CommandsHandled, m.ProcessingDuration)
	return m
}
