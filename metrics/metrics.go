// Package metrics exposes the querier's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BlocksProcessed counts blocks fully committed by the parser.
	BlocksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querier_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
	)

	// CurrentSlot tracks the slot of the last processed block.
	CurrentSlot = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querier_current_slot",
			Help: "Slot of the last processed block",
		},
	)

	// QueueDepth tracks the number of blocks waiting for the parser.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querier_queue_depth",
			Help: "Blocks buffered between chain client and parser",
		},
	)

	// OpenOrders tracks the size of the open-orders set.
	OpenOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querier_open_orders",
			Help: "Orders placed but not yet consumed",
		},
	)

	// TransactionsAttributed counts batch transactions persisted.
	TransactionsAttributed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querier_transactions_attributed_total",
			Help: "Batch transactions attributed to batchers",
		},
	)

	// BatcherMerges counts union-find merge events.
	BatcherMerges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querier_batcher_merges_total",
			Help: "Batcher identities merged",
		},
	)

	// Rollbacks counts store truncations driven by fork recovery.
	Rollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querier_rollbacks_total",
			Help: "Rollbacks executed against the store",
		},
	)

	// FallbackErrors counts failed UTxO fallback lookups.
	FallbackErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querier_fallback_errors_total",
			Help: "Failed Blockfrost fallback requests",
		},
	)

	// OracleErrors counts failed price oracle lookups.
	OracleErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querier_oracle_errors_total",
			Help: "Failed price oracle requests",
		},
	)
)

func init() {
	prometheus.MustRegister(
		BlocksProcessed,
		CurrentSlot,
		QueueDepth,
		OpenOrders,
		TransactionsAttributed,
		BatcherMerges,
		Rollbacks,
		FallbackErrors,
		OracleErrors,
	)
}
