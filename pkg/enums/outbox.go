package enums

// OutboxEventType maps to the event_type_enum in Postgres.
type OutboxEventType string

const (
	EventSnapshotCreated  OutboxEventType = "snapshot.created"
	EventReportDispatched OutboxEventType = "report.dispatched"
	EventKPIStatusChanged OutboxEventType = "kpi.status_changed"
)

// OutboxAggregateType maps to the aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSnapshot OutboxAggregateType = "snapshot"
	AggregateReport   OutboxAggregateType = "report"
	AggregateKPI      OutboxAggregateType = "kpi"
)

// OutboxDLQErrorReason maps to the outbox_dlq_error_reason_enum in Postgres.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)
