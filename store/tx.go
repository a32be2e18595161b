package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/muesliswap/batcher-monitor/cardano"
)

// Tx is a scoped store transaction. All block mutations go through one Tx
// so a crash mid-block leaves the store at the previous block boundary.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Commit finalizes the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback abandons the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func encodeValue(v cardano.Value) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(raw), nil
}

func decodeValue(raw string) (cardano.Value, error) {
	var v cardano.Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// UpsertUtxo writes a tracked output. Replays of the same block after a
// restart overwrite in place.
func (t *Tx) UpsertUtxo(ctx context.Context, u Utxo) error {
	val, err := encodeValue(u.Value)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO utxos (id, owner, value, created_slot, spent_slot, block_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			owner = $2, value = $3, created_slot = $4, spent_slot = $5, block_hash = $6`
	_, err = t.tx.ExecContext(ctx, t.store.rebind(q),
		u.ID, u.Owner, val, u.CreatedSlot, u.SpentSlot, u.BlockHash)
	if err != nil {
		return fmt.Errorf("upsert utxo %s: %w", u.ID, err)
	}
	return nil
}

// MarkSpent records the slot at which the given outputs were consumed.
// Already-spent rows are left alone.
func (t *Tx) MarkSpent(ctx context.Context, ids []string, slot uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE utxos SET spent_slot = $1 WHERE spent_slot IS NULL AND id IN (` +
		placeholders(2, len(ids)) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, slot)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := t.tx.ExecContext(ctx, t.store.rebind(q), args...); err != nil {
		return fmt.Errorf("mark spent: %w", err)
	}
	return nil
}

// GetUtxos loads the given outputs. Missing ids are silently absent from
// the result; the caller decides whether that warrants a fallback lookup.
func (t *Tx) GetUtxos(ctx context.Context, ids []string) (map[string]Utxo, error) {
	out := make(map[string]Utxo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT id, owner, value, created_slot, spent_slot, block_hash
		FROM utxos WHERE id IN (` + placeholders(1, len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := t.tx.QueryContext(ctx, t.store.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("get utxos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u Utxo
		var val string
		if err := rows.Scan(&u.ID, &u.Owner, &val, &u.CreatedSlot, &u.SpentSlot, &u.BlockHash); err != nil {
			return nil, fmt.Errorf("scan utxo: %w", err)
		}
		if u.Value, err = decodeValue(val); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// InsertOrder writes a placed order.
func (t *Tx) InsertOrder(ctx context.Context, o Order) error {
	const q = `
		INSERT INTO orders (id, sender, recipient, slot, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			sender = $2, recipient = $3, slot = $4, transaction_id = $5`
	_, err := t.tx.ExecContext(ctx, t.store.rebind(q),
		o.ID, o.Sender, o.Recipient, o.PlacedSlot, o.TransactionID)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

// GetOrders loads the given orders. Missing ids are absent from the result.
func (t *Tx) GetOrders(ctx context.Context, ids []string) (map[string]Order, error) {
	out := make(map[string]Order, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT id, sender, recipient, slot, transaction_id
		FROM orders WHERE id IN (` + placeholders(1, len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := t.tx.QueryContext(ctx, t.store.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Sender, &o.Recipient, &o.PlacedSlot, &o.TransactionID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out[o.ID] = o
	}
	return out, rows.Err()
}

// InsertTransaction persists an attributed batch transaction and links the
// consumed orders to it. Returns the new transaction id.
func (t *Tx) InsertTransaction(ctx context.Context, tr Transaction, orderIDs []string) (int64, error) {
	assets, err := encodeValue(tr.NetAssets)
	if err != nil {
		return 0, err
	}

	var id int64
	if t.store.dialect == dialectPostgres {
		const q = `
			INSERT INTO transactions (tx_hash, slot, batcher_id, ada_profit, network_fee, equivalent_ada, net_assets)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		err = t.tx.QueryRowContext(ctx, q,
			tr.TxHash, tr.Slot, tr.BatcherID, tr.AdaProfit, tr.NetworkFee, tr.EquivalentAda, assets).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", tr.TxHash, err)
		}
	} else {
		const q = `
			INSERT INTO transactions (tx_hash, slot, batcher_id, ada_profit, network_fee, equivalent_ada, net_assets)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		res, err := t.tx.ExecContext(ctx, q,
			tr.TxHash, tr.Slot, tr.BatcherID, tr.AdaProfit, tr.NetworkFee, tr.EquivalentAda, assets)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", tr.TxHash, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", tr.TxHash, err)
		}
	}

	if len(orderIDs) > 0 {
		q := `UPDATE orders SET transaction_id = $1 WHERE id IN (` +
			placeholders(2, len(orderIDs)) + `)`
		args := make([]any, 0, len(orderIDs)+1)
		args = append(args, id)
		for _, oid := range orderIDs {
			args = append(args, oid)
		}
		if _, err := t.tx.ExecContext(ctx, t.store.rebind(q), args...); err != nil {
			return 0, fmt.Errorf("link orders to transaction %d: %w", id, err)
		}
	}
	return id, nil
}

// FindBatcherByAddress resolves a wallet address to its batcher id.
// Returns ErrNotFound when the address is unknown.
func (t *Tx) FindBatcherByAddress(ctx context.Context, address string) (int64, error) {
	const q = `SELECT batcher_id FROM batcher_addresses WHERE address = $1`
	var id int64
	err := t.tx.QueryRowContext(ctx, t.store.rebind(q), address).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find batcher by address: %w", err)
	}
	return id, nil
}

// CreateBatcher allocates a fresh batcher identity.
func (t *Tx) CreateBatcher(ctx context.Context) (int64, error) {
	if t.store.dialect == dialectPostgres {
		var id int64
		err := t.tx.QueryRowContext(ctx, `INSERT INTO batchers DEFAULT VALUES RETURNING id`).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("create batcher: %w", err)
		}
		return id, nil
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO batchers DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("create batcher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create batcher: %w", err)
	}
	return id, nil
}

// LinkAddress associates a wallet address with a batcher.
func (t *Tx) LinkAddress(ctx context.Context, address string, batcherID int64) error {
	const q = `
		INSERT INTO batcher_addresses (address, batcher_id)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET batcher_id = $2`
	if _, err := t.tx.ExecContext(ctx, t.store.rebind(q), address, batcherID); err != nil {
		return fmt.Errorf("link address %s: %w", address, err)
	}
	return nil
}

// MergeBatchers rewires all addresses and transactions of src onto dst and
// deletes src. Merging an id into itself is a no-op.
func (t *Tx) MergeBatchers(ctx context.Context, dst, src int64) error {
	if dst == src {
		return nil
	}
	steps := []struct {
		q    string
		desc string
	}{
		{`UPDATE batcher_addresses SET batcher_id = $1 WHERE batcher_id = $2`, "rewire addresses"},
		{`UPDATE transactions SET batcher_id = $1 WHERE batcher_id = $2`, "rewire transactions"},
	}
	for _, s := range steps {
		if _, err := t.tx.ExecContext(ctx, t.store.rebind(s.q), dst, src); err != nil {
			return fmt.Errorf("merge batcher %d into %d: %s: %w", src, dst, s.desc, err)
		}
	}
	const del = `DELETE FROM batchers WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, t.store.rebind(del), src); err != nil {
		return fmt.Errorf("merge batcher %d into %d: delete: %w", src, dst, err)
	}
	return nil
}

// DeleteUtxosSpentBefore evicts outputs whose spending settled before the
// given slot. Unspent rows are never touched.
func (t *Tx) DeleteUtxosSpentBefore(ctx context.Context, slot uint64) (int64, error) {
	const q = `DELETE FROM utxos WHERE spent_slot IS NOT NULL AND spent_slot < $1`
	res, err := t.tx.ExecContext(ctx, t.store.rebind(q), slot)
	if err != nil {
		return 0, fmt.Errorf("evict spent utxos: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteUtxosCreatedAfter truncates everything past the given slot: utxos
// created later, orders placed later, and transactions settled later.
// Spent marks made by rolled-back blocks are reopened.
func (t *Tx) DeleteUtxosCreatedAfter(ctx context.Context, slot uint64) error {
	steps := []string{
		`DELETE FROM utxos WHERE created_slot > $1`,
		`UPDATE utxos SET spent_slot = NULL WHERE spent_slot > $1`,
		`DELETE FROM orders WHERE slot > $1`,
		`DELETE FROM transactions WHERE slot > $1`,
	}
	for _, q := range steps {
		if _, err := t.tx.ExecContext(ctx, t.store.rebind(q), slot); err != nil {
			return fmt.Errorf("truncate after slot %d: %w", slot, err)
		}
	}
	return nil
}
