package observability

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values shared by the handoff collectors.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

var (
	// handoffTransitions counts state machine operations by transition and outcome.
	handoffTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_transitions_total",
			Help: "Handoff state transitions by transition and outcome.",
		},
		[]string{"transition", "outcome"},
	)

	// transcriptLines counts persisted transcript lines by sender.
	transcriptLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcript_lines_total",
			Help: "Transcript lines appended, by sender.",
		},
		[]string{"from"},
	)

	// sentimentRequests counts sentiment scoring attempts by outcome.
	sentimentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_requests_total",
			Help: "Sentiment scoring requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(handoffTransitions, transcriptLines, sentimentRequests)
}

// RecordTransition counts one handoff operation.
func RecordTransition(transition, outcome string) {
	handoffTransitions.WithLabelValues(transition, outcome).Inc()
}

// RecordTranscriptLine counts one appended line. Senders outside the known
// set are folded into "other" to bound cardinality.
func RecordTranscriptLine(from string) {
	switch from {
	case "Customer", "Bot", "Agent":
	default:
		from = "other"
	}
	transcriptLines.WithLabelValues(from).Inc()
}

// RecordSentiment counts one sentiment scoring attempt.
func RecordSentiment(outcome string) {
	sentimentRequests.WithLabelValues(outcome).Inc()
}
