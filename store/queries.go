package store

import (
	"context"
	"database/sql"
	"fmt"
)

// MaxSlotBlock returns the point of the newest tracked output, ordering by
// slot and then block hash so concurrent blocks resolve deterministically.
// An empty store yields (0, "", nil).
func (s *Store) MaxSlotBlock(ctx context.Context) (uint64, string, error) {
	const q = `
		SELECT created_slot, block_hash FROM utxos
		ORDER BY created_slot DESC, block_hash DESC
		LIMIT 1`
	var slot uint64
	var hash string
	err := s.db.QueryRowContext(ctx, q).Scan(&slot, &hash)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("max slot block: %w", err)
	}
	return slot, hash, nil
}

// OpenOrderIDs lists every order not yet consumed by a batch transaction.
func (s *Store) OpenOrderIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM orders WHERE transaction_id IS NULL`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BlockPoint identifies one block the store holds outputs of.
type BlockPoint struct {
	Slot uint64
	Hash string
}

// CreatedBlocks lists the distinct (slot, hash) points present in the
// store, newest first. Used during fork recovery to propose
// intersection candidates. The rollback window bounds the store, so
// the list is materialized rather than streamed; holding a cursor open
// here would pin the sole sqlite connection and block the truncating
// transaction that follows.
func (s *Store) CreatedBlocks(ctx context.Context) ([]BlockPoint, error) {
	const q = `
		SELECT DISTINCT created_slot, block_hash FROM utxos
		ORDER BY created_slot DESC, block_hash DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("created blocks: %w", err)
	}
	defer rows.Close()

	var points []BlockPoint
	for rows.Next() {
		var p BlockPoint
		if err := rows.Scan(&p.Slot, &p.Hash); err != nil {
			return nil, fmt.Errorf("scan block point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
