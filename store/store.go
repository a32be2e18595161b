// Package store is the relational gateway. It speaks postgres or sqlite
// depending on the DATABASE_URI scheme; all block-driven mutations run
// inside one scoped transaction per block.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("store: not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store wraps the SQL handle and dialect.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database named by uri. postgres:// and postgresql://
// URIs use the pq driver; anything else is a sqlite path (optionally
// prefixed sqlite://). Sqlite gets foreign keys switched on, matching the
// cascade semantics postgres enforces natively.
func Open(uri string) (*Store, error) {
	if strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://") {
		db, err := sql.Open("postgres", uri)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Store{db: db, dialect: dialectPostgres}, nil
	}

	path := strings.TrimPrefix(uri, "sqlite://")
	if !strings.Contains(path, "?") {
		path += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY between the parser transaction and API readers.
	db.SetMaxOpenConns(1)
	return &Store{db: db, dialect: dialectSQLite}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates all tables and indexes if missing.
func (s *Store) InitSchema(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == dialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS utxos (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			value TEXT NOT NULL,
			created_slot BIGINT NOT NULL,
			spent_slot BIGINT,
			block_hash TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS utxos_by_created_slot ON utxos (created_slot)`,
		`CREATE INDEX IF NOT EXISTS utxos_by_spent_slot ON utxos (spent_slot)`,

		`CREATE TABLE IF NOT EXISTS batchers (
			id ` + serial + `
		)`,
		`CREATE TABLE IF NOT EXISTS batcher_addresses (
			address TEXT PRIMARY KEY,
			batcher_id BIGINT NOT NULL REFERENCES batchers (id) ON DELETE CASCADE ON UPDATE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS batcher_addresses_by_batcher ON batcher_addresses (batcher_id)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id ` + serial + `,
			tx_hash TEXT NOT NULL,
			slot BIGINT NOT NULL,
			batcher_id BIGINT REFERENCES batchers (id) ON UPDATE CASCADE,
			ada_profit BIGINT NOT NULL,
			network_fee BIGINT NOT NULL,
			equivalent_ada BIGINT NOT NULL,
			net_assets TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_by_slot ON transactions (slot)`,
		`CREATE INDEX IF NOT EXISTS transactions_by_batcher ON transactions (batcher_id)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			slot BIGINT NOT NULL,
			transaction_id BIGINT REFERENCES transactions (id) ON DELETE SET NULL ON UPDATE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS orders_by_transaction ON orders (transaction_id)`,
		`CREATE INDEX IF NOT EXISTS orders_by_slot ON orders (slot)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Begin opens a scoped transaction. The caller must Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx, store: s}, nil
}

// rebind rewrites $N placeholders to sqlite's ordinal ?N form. Ordinals
// are kept so a parameter referenced twice still binds once.
func (s *Store) rebind(q string) string {
	if s.dialect == dialectPostgres {
		return q
	}
	return strings.ReplaceAll(q, "$", "?")
}

// placeholders renders "$from, $from+1, …" for IN clauses.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}
