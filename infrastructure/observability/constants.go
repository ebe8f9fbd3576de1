package observability

// Metric name prefixes
const (
	MetricPrefix = "adledger"
)

// Metric names
const (
	// Ledger metrics
	LedgerOperationsTotal   = MetricPrefix + ".ledger.operations_total"
	LedgerOperationDuration = MetricPrefix + ".ledger.operation_duration"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Withdrawal notifier metrics
	WithdrawalNotificationsTotal = MetricPrefix + ".withdrawals.notifications_total"
)

// Label keys
const (
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
	LabelChannel   = "channel"
	LabelResult    = "result"
)

// Result values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func resultLabel(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
