package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Valores monetários ficam em NUMERIC no Postgres e TEXT no SQLite: a afinidade
// numérica do SQLite converteria "0.10" em REAL e perderia precisão.

func postgresMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS bets (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			market_id        TEXT NOT NULL,
			selection_id     TEXT NOT NULL,
			odds             NUMERIC(28,8) NOT NULL,
			stake            NUMERIC(28,8) NOT NULL,
			potential_payout NUMERIC(28,8) NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			payout           NUMERIC(28,8),
			result_code      TEXT,
			settlement_mode  TEXT,
			placed_at        TIMESTAMPTZ NOT NULL,
			settled_at       TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_market_status ON bets(market_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user ON bets(user_id)`,

		`CREATE TABLE IF NOT EXISTS bet_transactions (
			id         BIGSERIAL PRIMARY KEY,
			bet_id     TEXT NOT NULL REFERENCES bets(id),
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			reason     TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			amount     NUMERIC(28,8) NOT NULL CHECK (amount > 0),
			status     TEXT NOT NULL,
			reference  TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_bet_reference
			ON ledger_entries(reference, type) WHERE type IN ('bet', 'win', 'void_refund')`,

		`CREATE TABLE IF NOT EXISTS market_settlements (
			market_id       TEXT PRIMARY KEY,
			result_code     TEXT,
			settlement_mode TEXT NOT NULL,
			settled_count   INTEGER NOT NULL,
			failed_count    INTEGER NOT NULL,
			triggered_by    TEXT NOT NULL,
			settled_at      TIMESTAMPTZ NOT NULL
		)`,
	}
}

func sqliteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS bets (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			market_id        TEXT NOT NULL,
			selection_id     TEXT NOT NULL,
			odds             TEXT NOT NULL,
			stake            TEXT NOT NULL,
			potential_payout TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			payout           TEXT,
			result_code      TEXT,
			settlement_mode  TEXT,
			placed_at        DATETIME NOT NULL,
			settled_at       DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_market_status ON bets(market_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user ON bets(user_id)`,

		`CREATE TABLE IF NOT EXISTS bet_transactions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			bet_id     TEXT NOT NULL REFERENCES bets(id),
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			reason     TEXT,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			amount     TEXT NOT NULL,
			status     TEXT NOT NULL,
			reference  TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_bet_reference
			ON ledger_entries(reference, type) WHERE type IN ('bet', 'win', 'void_refund')`,

		`CREATE TABLE IF NOT EXISTS market_settlements (
			market_id       TEXT PRIMARY KEY,
			result_code     TEXT,
			settlement_mode TEXT NOT NULL,
			settled_count   INTEGER NOT NULL,
			failed_count    INTEGER NOT NULL,
			triggered_by    TEXT NOT NULL,
			settled_at      DATETIME NOT NULL
		)`,
	}
}

// Migrations retorna o schema do dialeto, um statement por item
func Migrations(d Dialect) []string {
	if d == SQLite {
		return sqliteMigrations()
	}
	return postgresMigrations()
}

// Migrate aplica o schema; todos os statements são idempotentes
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for i, stmt := range Migrations(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
