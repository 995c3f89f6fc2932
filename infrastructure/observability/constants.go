package observability

// Metric name prefixes
const (
	MetricPrefix = "raffle"
)

// Metric names
const (
	// Raffle metrics
	EntriesTotal       = MetricPrefix + ".entries_total"
	EntryAmountTotal   = MetricPrefix + ".entries.amount_total"
	UpkeepsTotal       = MetricPrefix + ".upkeeps_total"
	SettlementsTotal   = MetricPrefix + ".settlements_total"
	PayoutAmountTotal  = MetricPrefix + ".settlements.payout_total"
	FulfillmentLatency = MetricPrefix + ".vrf.fulfillment_duration"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelRaffleID  = "raffle_id"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
)

// Upkeep outcomes
const (
	UpkeepPerformed = "performed"
	UpkeepNotNeeded = "not_needed"
	UpkeepFailed    = "failed"
)

// Settlement outcomes
const (
	SettlementSucceeded      = "succeeded"
	SettlementTransferFailed = "transfer_failed"
	SettlementRejected       = "rejected"
)
