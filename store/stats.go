package store

import (
	"context"
	"database/sql"
	"fmt"
)

// batcherAddresses loads the address list per batcher id.
func (s *Store) batcherAddresses(ctx context.Context) (map[int64][]string, error) {
	const q = `SELECT batcher_id, address FROM batcher_addresses ORDER BY address`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("batcher addresses: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var addr string
		if err := rows.Scan(&id, &addr); err != nil {
			return nil, fmt.Errorf("scan batcher address: %w", err)
		}
		out[id] = append(out[id], addr)
	}
	return out, rows.Err()
}

// Batchers lists every known batcher with its transaction count and
// addresses.
func (s *Store) Batchers(ctx context.Context) ([]BatcherInfo, error) {
	addrs, err := s.batcherAddresses(ctx)
	if err != nil {
		return nil, err
	}

	const q = `
		SELECT b.id, COUNT(t.id)
		FROM batchers b
		LEFT JOIN transactions t ON t.batcher_id = b.id
		GROUP BY b.id
		ORDER BY b.id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("batchers: %w", err)
	}
	defer rows.Close()

	var out []BatcherInfo
	for rows.Next() {
		var b BatcherInfo
		if err := rows.Scan(&b.ID, &b.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan batcher: %w", err)
		}
		b.Addresses = addrs[b.ID]
		if b.Addresses == nil {
			b.Addresses = []string{}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// StatsByAddress summarizes the profit of the batcher owning the given
// address. Profit per transaction is ada_profit + equivalent_ada.
// ErrNotFound when the address maps to no batcher.
func (s *Store) StatsByAddress(ctx context.Context, address string) (Stats, error) {
	const lookup = `SELECT batcher_id FROM batcher_addresses WHERE address = $1`
	var batcherID int64
	err := s.db.QueryRowContext(ctx, s.rebind(lookup), address).Scan(&batcherID)
	if err == sql.ErrNoRows {
		return Stats{}, ErrNotFound
	}
	if err != nil {
		return Stats{}, fmt.Errorf("stats lookup: %w", err)
	}

	const q = `
		SELECT
			COALESCE(MAX(ada_profit + equivalent_ada), 0),
			COALESCE(MIN(ada_profit + equivalent_ada), 0),
			COALESCE(AVG(ada_profit + equivalent_ada), 0),
			COALESCE(SUM(ada_profit + equivalent_ada), 0)
		FROM transactions WHERE batcher_id = $1`
	var st Stats
	err = s.db.QueryRowContext(ctx, s.rebind(q), batcherID).
		Scan(&st.MaxProfit, &st.MinProfit, &st.AvgProfit, &st.Total)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// AllStats returns per-batcher profit summaries with identity fields.
func (s *Store) AllStats(ctx context.Context) ([]ExpandedStats, error) {
	addrs, err := s.batcherAddresses(ctx)
	if err != nil {
		return nil, err
	}

	const q = `
		SELECT b.id,
			COUNT(t.id),
			COALESCE(MAX(t.ada_profit + t.equivalent_ada), 0),
			COALESCE(MIN(t.ada_profit + t.equivalent_ada), 0),
			COALESCE(AVG(t.ada_profit + t.equivalent_ada), 0),
			COALESCE(SUM(t.ada_profit + t.equivalent_ada), 0)
		FROM batchers b
		LEFT JOIN transactions t ON t.batcher_id = b.id
		GROUP BY b.id
		ORDER BY b.id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("all stats: %w", err)
	}
	defer rows.Close()

	var out []ExpandedStats
	for rows.Next() {
		var id int64
		var es ExpandedStats
		err := rows.Scan(&id, &es.TransactionCount,
			&es.MaxProfit, &es.MinProfit, &es.AvgProfit, &es.Total)
		if err != nil {
			return nil, fmt.Errorf("scan all stats: %w", err)
		}
		es.Addresses = addrs[id]
		if es.Addresses == nil {
			es.Addresses = []string{}
		}
		out = append(out, es)
	}
	return out, rows.Err()
}

// TransactionsByAddress lists the attributed transactions of the batcher
// owning the given address, newest first.
func (s *Store) TransactionsByAddress(ctx context.Context, address string) ([]TransactionInfo, error) {
	const q = `
		SELECT t.tx_hash, t.slot, t.ada_profit, t.equivalent_ada, t.net_assets
		FROM transactions t
		JOIN batcher_addresses a ON a.batcher_id = t.batcher_id
		WHERE a.address = $1
		ORDER BY t.slot DESC`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), address)
	if err != nil {
		return nil, fmt.Errorf("transactions by address: %w", err)
	}
	defer rows.Close()

	var out []TransactionInfo
	for rows.Next() {
		var ti TransactionInfo
		var assets string
		if err := rows.Scan(&ti.TxHash, &ti.Slot, &ti.AdaProfit, &ti.EquivalentAda, &assets); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if ti.NetAssets, err = decodeValue(assets); err != nil {
			return nil, err
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}
