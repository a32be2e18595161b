package store

import "github.com/muesliswap/batcher-monitor/cardano"

// Utxo is a tracked transaction output. ID is "txHash#index".
type Utxo struct {
	ID          string
	Owner       string // bech32
	Value       cardano.Value
	CreatedSlot uint64
	SpentSlot   *uint64
	BlockHash   string
}

// Order is an output placed at a recognized order-book address. Sender and
// Recipient are wallet keys (pkh || skh). TransactionID is nil while the
// order is open.
type Order struct {
	ID            string
	Sender        string
	Recipient     string
	PlacedSlot    uint64
	TransactionID *int64
}

// Transaction is an attributed batch transaction.
type Transaction struct {
	ID            int64
	TxHash        string
	Slot          uint64
	BatcherID     *int64
	AdaProfit     int64
	NetworkFee    int64
	EquivalentAda int64
	NetAssets     cardano.Value
}

// BatcherInfo aggregates one batcher for the read API.
type BatcherInfo struct {
	ID               int64    `json:"-"`
	TransactionCount int      `json:"transaction_count"`
	Addresses        []string `json:"addresses"`
}

// Stats summarizes the profit distribution of one batcher. Profit here is
// ada_profit + equivalent_ada per transaction.
type Stats struct {
	MaxProfit float64 `json:"max_profit"`
	MinProfit float64 `json:"min_profit"`
	AvgProfit float64 `json:"avg_profit"`
	Total     float64 `json:"total"`
}

// ExpandedStats is Stats plus identity fields, used by /all-stats.
type ExpandedStats struct {
	Stats
	TransactionCount int      `json:"num_transactions"`
	Addresses        []string `json:"addresses"`
}

// TransactionInfo is the /transactions row shape.
type TransactionInfo struct {
	TxHash        string        `json:"tx_hash"`
	Slot          uint64        `json:"slot"`
	AdaProfit     int64         `json:"ada_profit"`
	EquivalentAda int64         `json:"equivalent_ada"`
	NetAssets     cardano.Value `json:"net_assets"`
}
