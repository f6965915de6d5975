package storage

import "database/sql"

// EnsureSchema creates the ledger tables when they do not exist yet. It is
// idempotent and runs at startup, before the first merge.
func EnsureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			txn_id          TEXT PRIMARY KEY,
			record_kind     TEXT NOT NULL,
			event_kind      TEXT NOT NULL,
			cash_kind       TEXT NOT NULL DEFAULT '',
			symbol          TEXT NOT NULL DEFAULT '',
			underlying      TEXT NOT NULL DEFAULT '',
			strike          NUMERIC NOT NULL DEFAULT 0,
			option_right    TEXT NOT NULL DEFAULT '',
			expiry          DATE,
			multiplier      BIGINT NOT NULL DEFAULT 1,
			quantity        NUMERIC NOT NULL DEFAULT 0,
			price           NUMERIC NOT NULL DEFAULT 0,
			amount          NUMERIC NOT NULL DEFAULT 0,
			commission      NUMERIC NOT NULL DEFAULT 0,
			currency        TEXT NOT NULL DEFAULT '',
			fx_rate_to_base NUMERIC NOT NULL DEFAULT 1,
			native_time     TIMESTAMPTZ NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			cash_type       TEXT NOT NULL DEFAULT '',
			merged_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_native_time
			ON ledger_events (native_time)`,

		`CREATE TABLE IF NOT EXISTS unclassified_records (
			txn_id      TEXT PRIMARY KEY,
			native_time TIMESTAMPTZ NOT NULL,
			payload     JSONB NOT NULL,
			reason      TEXT NOT NULL,
			seen_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved    BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS daily_ledgers (
			trading_day      DATE PRIMARY KEY,
			opening_nav      NUMERIC NOT NULL,
			adjustments      JSONB NOT NULL DEFAULT '[]',
			calculated_close NUMERIC NOT NULL,
			official_close   NUMERIC NOT NULL,
			discrepancy      NUMERIC NOT NULL,
			class            TEXT NOT NULL,
			notes            TEXT NOT NULL DEFAULT '',
			computed_at      TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS positions (
			id             TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			quantity       NUMERIC NOT NULL,
			entry_price    NUMERIC NOT NULL,
			entry_time     TIMESTAMPTZ NOT NULL,
			multiplier     BIGINT NOT NULL DEFAULT 1,
			opening_txn_id TEXT PRIMARY KEY,
			exit_price     NUMERIC NOT NULL DEFAULT 0,
			exit_time      TIMESTAMPTZ,
			closing_txn_id TEXT NOT NULL DEFAULT '',
			realized_pl    NUMERIC NOT NULL DEFAULT 0,
			status         TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_symbol
			ON positions (symbol, status)`,

		`CREATE TABLE IF NOT EXISTS official_navs (
			trading_day DATE PRIMARY KEY,
			opening_nav NUMERIC NOT NULL,
			closing_nav NUMERIC NOT NULL,
			fx_rate     NUMERIC NOT NULL DEFAULT 1,
			currency    TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS ingestion_checkpoints (
			source         TEXT PRIMARY KEY,
			reference_code TEXT NOT NULL,
			coverage_start DATE NOT NULL,
			coverage_end   DATE NOT NULL,
			merged_at      TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
