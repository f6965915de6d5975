package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/models"
)

// LedgerRepository defines the contract for DB operations.
type LedgerRepository interface {
	UpsertEvents(events []models.ClassifiedEvent) error
	UpsertUnclassified(rec models.RawRecord, reason string) error
	GetEventsForWindow(start, end time.Time) ([]models.ClassifiedEvent, error)
	ListUnclassified() ([]UnclassifiedRecord, error)

	SaveDailyLedger(ledger models.DailyLedger) error
	ListLedgers(start, end *time.Time) ([]models.DailyLedger, error)
	ListExceptions(start, end *time.Time) ([]models.DailyLedger, error)

	SavePositions(positions []models.Position) error
	GetOpenPositionsAsOf(t time.Time) ([]models.Position, error)
	ListPositions(symbol string, status models.PositionStatus) ([]models.Position, error)

	UpsertOfficialNAVs(navs []models.OfficialNAV) error
	GetOfficialNAV(tradingDay time.Time) (*models.OfficialNAV, error)

	GetCheckpoint(source string) (*models.IngestionCheckpoint, error)
	AdvanceCheckpoint(cp models.IngestionCheckpoint) error
}

// UnclassifiedRecord is a raw record that failed semantic classification,
// parked for operator review. The day it belongs to stays un-final until
// the record is resolved, so these must surface loudly.
type UnclassifiedRecord struct {
	Record   models.RawRecord
	Reason   string
	SeenAt   time.Time
	Resolved bool
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// UpsertEvents merges classified events in a single transaction. Conflicts
// on txn_id overwrite the stored row: a re-fetch carrying corrected figures
// replaces the stale fact, an identical re-fetch is a no-op.
func (r *ledgerRepository) UpsertEvents(events []models.ClassifiedEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO ledger_events (
			txn_id, record_kind, event_kind, cash_kind,
			symbol, underlying, strike, option_right, expiry, multiplier,
			quantity, price, amount, commission, currency, fx_rate_to_base,
			native_time, description, cash_type
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (txn_id) DO UPDATE SET
			record_kind = EXCLUDED.record_kind,
			event_kind = EXCLUDED.event_kind,
			cash_kind = EXCLUDED.cash_kind,
			symbol = EXCLUDED.symbol,
			underlying = EXCLUDED.underlying,
			strike = EXCLUDED.strike,
			option_right = EXCLUDED.option_right,
			expiry = EXCLUDED.expiry,
			multiplier = EXCLUDED.multiplier,
			quantity = EXCLUDED.quantity,
			price = EXCLUDED.price,
			amount = EXCLUDED.amount,
			commission = EXCLUDED.commission,
			currency = EXCLUDED.currency,
			fx_rate_to_base = EXCLUDED.fx_rate_to_base,
			native_time = EXCLUDED.native_time,
			description = EXCLUDED.description,
			cash_type = EXCLUDED.cash_type,
			merged_at = NOW()
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	toNullDate := func(d time.Time) interface{} {
		if d.IsZero() {
			return nil
		}
		return d
	}

	for _, ev := range events {
		raw := ev.Raw
		if _, err := stmt.Exec(
			raw.TxnID,
			string(raw.Kind),
			string(ev.Kind),
			string(ev.CashKind),
			raw.Instrument.Symbol,
			raw.Instrument.Underlying,
			raw.Instrument.Strike,
			string(raw.Instrument.Right),
			toNullDate(raw.Instrument.Expiry),
			raw.Instrument.Multiplier,
			raw.Quantity,
			raw.Price,
			raw.Amount,
			raw.Commission,
			raw.Currency,
			raw.FXRateToBase,
			raw.NativeTime,
			raw.Description,
			raw.CashType,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("upsert event %s: %w", raw.TxnID, err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UpsertUnclassified parks a record that did not resolve to a known event
// kind. A later re-merge of the same txn_id refreshes the reason.
func (r *ledgerRepository) UpsertUnclassified(rec models.RawRecord, reason string) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO unclassified_records (txn_id, native_time, payload, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (txn_id)
		DO UPDATE SET payload = EXCLUDED.payload,
					  reason = EXCLUDED.reason,
					  seen_at = NOW()
	`, rec.TxnID, rec.NativeTime, payload, reason)
	return err
}

const eventColumns = `
	txn_id, record_kind, event_kind, cash_kind,
	symbol, underlying, strike, option_right, expiry, multiplier,
	quantity, price, amount, commission, currency, fx_rate_to_base,
	native_time, description, cash_type`

// GetEventsForWindow returns every classified event with native_time in
// the half-open window (start, end], ordered for deterministic replay.
func (r *ledgerRepository) GetEventsForWindow(start, end time.Time) ([]models.ClassifiedEvent, error) {
	rows, err := r.db.Query(`
		SELECT `+eventColumns+`
		FROM ledger_events
		WHERE native_time > $1 AND native_time <= $2
		ORDER BY native_time, txn_id
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.ClassifiedEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (models.ClassifiedEvent, error) {
	var (
		ev       models.ClassifiedEvent
		kind     string
		evKind   string
		cashKind string
		right    string
		expiry   sql.NullTime
	)
	err := rows.Scan(
		&ev.Raw.TxnID, &kind, &evKind, &cashKind,
		&ev.Raw.Instrument.Symbol, &ev.Raw.Instrument.Underlying,
		&ev.Raw.Instrument.Strike, &right, &expiry, &ev.Raw.Instrument.Multiplier,
		&ev.Raw.Quantity, &ev.Raw.Price, &ev.Raw.Amount, &ev.Raw.Commission,
		&ev.Raw.Currency, &ev.Raw.FXRateToBase,
		&ev.Raw.NativeTime, &ev.Raw.Description, &ev.Raw.CashType,
	)
	if err != nil {
		return models.ClassifiedEvent{}, err
	}
	ev.Raw.Kind = models.RecordKind(kind)
	ev.Kind = models.EventKind(evKind)
	ev.CashKind = models.CashKind(cashKind)
	ev.Raw.Instrument.Right = models.OptionRight(right)
	if expiry.Valid {
		ev.Raw.Instrument.Expiry = expiry.Time
	}
	return ev, nil
}

// ListUnclassified returns parked records that still need an operator.
func (r *ledgerRepository) ListUnclassified() ([]UnclassifiedRecord, error) {
	rows, err := r.db.Query(`
		SELECT payload, reason, seen_at, resolved
		FROM unclassified_records
		WHERE NOT resolved
		ORDER BY native_time
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []UnclassifiedRecord
	for rows.Next() {
		var (
			rec     UnclassifiedRecord
			payload []byte
		)
		if err := rows.Scan(&payload, &rec.Reason, &rec.SeenAt, &rec.Resolved); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Record); err != nil {
			return nil, fmt.Errorf("decode parked record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveDailyLedger replaces the whole row for the ledger's trading day.
// Ledger rows are regenerated, never edited, so every column is overwritten
// on conflict.
func (r *ledgerRepository) SaveDailyLedger(ledger models.DailyLedger) error {
	adjustments, err := json.Marshal(ledger.Adjustments)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO daily_ledgers (
			trading_day, opening_nav, adjustments, calculated_close,
			official_close, discrepancy, class, notes, computed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (trading_day) DO UPDATE SET
			opening_nav = EXCLUDED.opening_nav,
			adjustments = EXCLUDED.adjustments,
			calculated_close = EXCLUDED.calculated_close,
			official_close = EXCLUDED.official_close,
			discrepancy = EXCLUDED.discrepancy,
			class = EXCLUDED.class,
			notes = EXCLUDED.notes,
			computed_at = EXCLUDED.computed_at
	`, ledger.TradingDay, ledger.OpeningNAV, adjustments, ledger.CalculatedClose,
		ledger.OfficialClose, ledger.Discrepancy, string(ledger.Class),
		ledger.Notes, ledger.ComputedAt)
	return err
}

const ledgerColumns = `
	trading_day, opening_nav, adjustments, calculated_close,
	official_close, discrepancy, class, notes, computed_at`

func (r *ledgerRepository) ListLedgers(start, end *time.Time) ([]models.DailyLedger, error) {
	return r.queryLedgers("", start, end)
}

// ListExceptions returns only the days whose reconciliation landed outside
// tolerance.
func (r *ledgerRepository) ListExceptions(start, end *time.Time) ([]models.DailyLedger, error) {
	return r.queryLedgers(fmt.Sprintf("class = '%s'", models.DiscrepancyException), start, end)
}

func (r *ledgerRepository) queryLedgers(extra string, start, end *time.Time) ([]models.DailyLedger, error) {
	conditions := "TRUE"
	var args []interface{}
	if extra != "" {
		conditions += " AND " + extra
	}
	if start != nil {
		conditions += fmt.Sprintf(" AND trading_day >= $%d", len(args)+1)
		args = append(args, *start)
	}
	if end != nil {
		conditions += fmt.Sprintf(" AND trading_day <= $%d", len(args)+1)
		args = append(args, *end)
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s FROM daily_ledgers WHERE %s ORDER BY trading_day
	`, ledgerColumns, conditions), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.DailyLedger
	for rows.Next() {
		var (
			l           models.DailyLedger
			adjustments []byte
			class       string
		)
		if err := rows.Scan(&l.TradingDay, &l.OpeningNAV, &adjustments,
			&l.CalculatedClose, &l.OfficialClose, &l.Discrepancy,
			&class, &l.Notes, &l.ComputedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(adjustments, &l.Adjustments); err != nil {
			return nil, fmt.Errorf("decode adjustments for %s: %w", l.TradingDay.Format("2006-01-02"), err)
		}
		l.Class = models.DiscrepancyClass(class)
		out = append(out, l)
	}
	return out, rows.Err()
}

// SavePositions upserts the replayed position set. The opening assignment's
// txn_id is the natural key: replays mint fresh position IDs, but the same
// assignment always maps back to the same row.
func (r *ledgerRepository) SavePositions(positions []models.Position) error {
	if len(positions) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO positions (
			id, symbol, quantity, entry_price, entry_time, multiplier,
			opening_txn_id, exit_price, exit_time, closing_txn_id,
			realized_pl, status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (opening_txn_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			entry_price = EXCLUDED.entry_price,
			entry_time = EXCLUDED.entry_time,
			multiplier = EXCLUDED.multiplier,
			exit_price = EXCLUDED.exit_price,
			exit_time = EXCLUDED.exit_time,
			closing_txn_id = EXCLUDED.closing_txn_id,
			realized_pl = EXCLUDED.realized_pl,
			status = EXCLUDED.status
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	toNullTime := func(t time.Time) interface{} {
		if t.IsZero() {
			return nil
		}
		return t
	}

	for _, p := range positions {
		if _, err := stmt.Exec(
			p.ID, p.Symbol, p.Quantity, p.EntryPrice, p.EntryTime,
			p.Multiplier, p.OpeningTxnID, p.ExitPrice, toNullTime(p.ExitTime),
			p.ClosingTxnID, p.RealizedPL, string(p.Status),
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("upsert position %s: %w", p.OpeningTxnID, err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const positionColumns = `
	id, symbol, quantity, entry_price, entry_time, multiplier,
	opening_txn_id, exit_price, exit_time, closing_txn_id,
	realized_pl, status`

// GetOpenPositionsAsOf returns the positions open at instant t, presented
// as open: a position covered after t has its exit fields cleared so a
// day replay starts from the state the account was actually in.
func (r *ledgerRepository) GetOpenPositionsAsOf(t time.Time) ([]models.Position, error) {
	rows, err := r.db.Query(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE entry_time <= $1
		  AND (status = 'open' OR exit_time > $1)
		ORDER BY entry_time, opening_txn_id
	`, t)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		p.Status = models.PositionOpen
		p.ExitPrice = decimal.Zero
		p.ExitTime = time.Time{}
		p.ClosingTxnID = ""
		p.RealizedPL = decimal.Zero
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ledgerRepository) ListPositions(symbol string, status models.PositionStatus) ([]models.Position, error) {
	conditions := "TRUE"
	var args []interface{}
	if symbol != "" {
		conditions += fmt.Sprintf(" AND symbol = $%d", len(args)+1)
		args = append(args, symbol)
	}
	if status != "" {
		conditions += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, string(status))
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s FROM positions WHERE %s ORDER BY entry_time
	`, positionColumns, conditions), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPosition(rows *sql.Rows) (models.Position, error) {
	var (
		p        models.Position
		exitTime sql.NullTime
		status   string
	)
	err := rows.Scan(
		&p.ID, &p.Symbol, &p.Quantity, &p.EntryPrice, &p.EntryTime,
		&p.Multiplier, &p.OpeningTxnID, &p.ExitPrice, &exitTime,
		&p.ClosingTxnID, &p.RealizedPL, &status,
	)
	if err != nil {
		return models.Position{}, err
	}
	if exitTime.Valid {
		p.ExitTime = exitTime.Time
	}
	p.Status = models.PositionStatus(status)
	return p, nil
}

// UpsertOfficialNAVs merges the broker's reported per-day figures. A
// re-delivered day overwrites: the latest statement wins.
func (r *ledgerRepository) UpsertOfficialNAVs(navs []models.OfficialNAV) error {
	if len(navs) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO official_navs (trading_day, opening_nav, closing_nav, fx_rate, currency)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (trading_day) DO UPDATE SET
			opening_nav = EXCLUDED.opening_nav,
			closing_nav = EXCLUDED.closing_nav,
			fx_rate = EXCLUDED.fx_rate,
			currency = EXCLUDED.currency
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, n := range navs {
		if _, err := stmt.Exec(n.TradingDay, n.Opening, n.Closing, n.FXRate, n.Currency); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("upsert official NAV %s: %w", n.TradingDay.Format("2006-01-02"), err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetOfficialNAV returns the broker figures for a trading day, or nil when
// the broker has not reported that day.
func (r *ledgerRepository) GetOfficialNAV(tradingDay time.Time) (*models.OfficialNAV, error) {
	var n models.OfficialNAV
	err := r.db.QueryRow(`
		SELECT trading_day, opening_nav, closing_nav, fx_rate, currency
		FROM official_navs WHERE trading_day = $1
	`, tradingDay).Scan(&n.TradingDay, &n.Opening, &n.Closing, &n.FXRate, &n.Currency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetCheckpoint returns the last merged extract for a source, or nil when
// the source has never been merged.
func (r *ledgerRepository) GetCheckpoint(source string) (*models.IngestionCheckpoint, error) {
	var cp models.IngestionCheckpoint
	err := r.db.QueryRow(`
		SELECT source, reference_code, coverage_start, coverage_end, merged_at
		FROM ingestion_checkpoints WHERE source = $1
	`, source).Scan(&cp.Source, &cp.ReferenceCode, &cp.CoverageStart, &cp.CoverageEnd, &cp.MergedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// AdvanceCheckpoint records a completed merge. Called only after the
// upsert and the covered-day recomputation both succeeded.
func (r *ledgerRepository) AdvanceCheckpoint(cp models.IngestionCheckpoint) error {
	_, err := r.db.Exec(`
		INSERT INTO ingestion_checkpoints (source, reference_code, coverage_start, coverage_end, merged_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source) DO UPDATE SET
			reference_code = EXCLUDED.reference_code,
			coverage_start = EXCLUDED.coverage_start,
			coverage_end = EXCLUDED.coverage_end,
			merged_at = EXCLUDED.merged_at
	`, cp.Source, cp.ReferenceCode, cp.CoverageStart, cp.CoverageEnd, cp.MergedAt)
	return err
}
