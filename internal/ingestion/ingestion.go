// Package ingestion drives the scheduled merge: fetch the latest extract,
// classify and upsert its records, recompute every covered trading day,
// and advance the checkpoint only once all of that has succeeded.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bearhedge/navledger/internal/classify"
	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/flex"
	"github.com/bearhedge/navledger/internal/logger"
	"github.com/bearhedge/navledger/internal/nav"
	"github.com/bearhedge/navledger/internal/reconcile"
	"github.com/bearhedge/navledger/internal/sequence"
	"github.com/bearhedge/navledger/internal/storage"
	"github.com/bearhedge/navledger/internal/tradingday"
)

const (
	sourceName = "flex"
	// Only the newest cached extract is retained; the store is
	// authoritative, the file exists so a bad merge can be rerun from disk.
	cacheKeep    = 1
	cachePrefix  = "extract_"
	cacheTimeFmt = "20060102T150405"
)

// Fetcher is the extract source. Satisfied by *flex.Client.
type Fetcher interface {
	Fetch(ctx context.Context) (body []byte, referenceCode string, err error)
}

// Parser decodes a fetched extract body. Normally flex.Parse.
type Parser func(body []byte, native *time.Location) (flex.Extract, error)

// Pipeline owns one source-to-ledger merge path.
type Pipeline struct {
	repo     storage.LedgerRepository
	fetcher  Fetcher
	parse    Parser
	cal      *tradingday.Calendar
	seq      *sequence.Sequencer
	rec      *reconcile.Engine
	cacheDir string
}

func New(repo storage.LedgerRepository, fetcher Fetcher, parse Parser,
	cal *tradingday.Calendar, seq *sequence.Sequencer, rec *reconcile.Engine,
	cacheDir string) *Pipeline {
	return &Pipeline{
		repo:     repo,
		fetcher:  fetcher,
		parse:    parse,
		cal:      cal,
		seq:      seq,
		rec:      rec,
		cacheDir: cacheDir,
	}
}

// Run executes one full merge. It is safe to re-run at any point: record
// upserts are keyed by txn_id, day recomputation regenerates whole rows,
// and the checkpoint only moves after everything else has landed.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	body, refCode, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch extract: %w", err)
	}
	if err := p.cacheExtract(body, refCode); err != nil {
		// Caching is best-effort; the merge proceeds from memory.
		logger.L().Warn().Err(err).Msg("failed to cache extract")
	}

	extract, err := p.parse(body, p.cal.Native())
	if err != nil {
		return fmt.Errorf("parse extract %s: %w", refCode, err)
	}
	logger.L().Info().
		Str("reference_code", refCode).
		Str("account", extract.AccountID).
		Int("records", len(extract.Records)).
		Int("nav_rows", len(extract.OfficialNAVs)).
		Msg("extract parsed")

	events, parked, err := p.classifyAll(extract.Records)
	if err != nil {
		return err
	}
	if parked > 0 {
		logger.L().Error().Int("unclassified", parked).
			Msg("records failed classification; affected days stay un-final until resolved")
	}

	if err := p.repo.UpsertEvents(events); err != nil {
		return fmt.Errorf("upsert events: %w", err)
	}
	if err := p.repo.UpsertOfficialNAVs(extract.OfficialNAVs); err != nil {
		return fmt.Errorf("upsert official NAVs: %w", err)
	}

	days := coveredDays(p.cal, extract)
	if err := p.Recompute(ctx, days); err != nil {
		return err
	}

	if err := p.repo.AdvanceCheckpoint(models.IngestionCheckpoint{
		Source:        sourceName,
		ReferenceCode: refCode,
		CoverageStart: extract.FromDate,
		CoverageEnd:   extract.ToDate,
		MergedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}

	p.pruneCache()
	logger.L().Info().
		Str("reference_code", refCode).
		Int("days", len(days)).
		Dur("elapsed", time.Since(start)).
		Msg("merge complete")
	return nil
}

// classifyAll resolves every record's semantic kind. A record that cannot
// be resolved is parked for the operator rather than silently guessed;
// anything else failing is a pipeline error.
func (p *Pipeline) classifyAll(records []models.RawRecord) ([]models.ClassifiedEvent, int, error) {
	var (
		events []models.ClassifiedEvent
		parked int
	)
	for _, rec := range records {
		ev, err := classify.Classify(rec)
		if err != nil {
			if errors.Is(err, classify.ErrUnresolved) {
				logger.L().Error().Str("txn_id", rec.TxnID).Err(err).Msg("record unresolved")
				if perr := p.repo.UpsertUnclassified(rec, err.Error()); perr != nil {
					return nil, 0, fmt.Errorf("park unresolved record %s: %w", rec.TxnID, perr)
				}
				parked++
				continue
			}
			return nil, 0, fmt.Errorf("classify %s: %w", rec.TxnID, err)
		}
		events = append(events, ev)
	}
	return events, parked, nil
}

// Recompute regenerates the ledger for the given trading days.
//
// Two passes. The first threads position state across days in order, since
// a day's replay needs the open-position snapshot at its start and covers
// on day N close positions opened on day N-1. The second replays,
// reconciles, and persists each day's ledger in parallel; that is safe
// because each day's inputs (events, prior official close, snapshot) are
// now fixed. Position state is persisted once afterwards, from the
// threaded end state: a cross-day cover has two days holding the same
// position in different states, and letting each goroutine write its own
// view would leave the store on whichever day finished last.
func (p *Pipeline) Recompute(ctx context.Context, days []time.Time) error {
	if len(days) == 0 {
		return nil
	}

	snapshots, positions, err := p.threadPositions(days)
	if err != nil {
		return err
	}

	maxParallel := runtime.NumCPU()
	if maxParallel > len(days) {
		maxParallel = len(days)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for _, day := range days {
		d := day
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.recomputeDay(d, snapshots[dayKey(d)])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := p.repo.SavePositions(positions); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}
	return nil
}

// threadPositions walks the days in order and returns, per day, the
// open-position snapshot at that day's start, plus every position's state
// at the end of the last day. The snapshot for the first day comes from
// the store; later days are derived by replaying forward. Opening NAV is
// irrelevant to position bookkeeping, so the threading replay runs from
// zero.
func (p *Pipeline) threadPositions(days []time.Time) (map[string][]models.Position, []models.Position, error) {
	first := days[0]
	startOfFirst, _ := p.cal.Window(first)
	carried, err := p.repo.GetOpenPositionsAsOf(startOfFirst)
	if err != nil {
		return nil, nil, fmt.Errorf("load open positions: %w", err)
	}

	snapshots := make(map[string][]models.Position, len(days))
	endState := make(map[string]models.Position)
	for _, day := range days {
		snapshots[dayKey(day)] = carried

		seqDay, err := p.buildDay(day)
		if err != nil {
			return nil, nil, err
		}
		result, err := nav.Replay(seqDay, decimal.Zero, carried)
		if err != nil {
			return nil, nil, fmt.Errorf("thread positions through %s: %w", dayKey(day), err)
		}
		// A later day's view of a position (closed) supersedes an earlier
		// day's (open); keying by opening txn keeps only the end state.
		for _, pos := range result.Positions {
			endState[pos.OpeningTxnID] = pos
		}
		carried = nav.OpenPositionsAsOf(result.Positions)
	}

	positions := make([]models.Position, 0, len(endState))
	for _, pos := range endState {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		if !positions[i].EntryTime.Equal(positions[j].EntryTime) {
			return positions[i].EntryTime.Before(positions[j].EntryTime)
		}
		return positions[i].OpeningTxnID < positions[j].OpeningTxnID
	})
	return snapshots, positions, nil
}

// recomputeDay regenerates one day's ledger: replay, reconcile, persist.
// Position state is saved separately by Recompute.
func (p *Pipeline) recomputeDay(day time.Time, snapshot []models.Position) error {
	key := dayKey(day)

	seqDay, err := p.buildDay(day)
	if err != nil {
		return err
	}

	opening, officialClose, ok, err := p.officialBounds(day)
	if err != nil {
		return err
	}
	if !ok {
		logger.L().Warn().Str("day", key).
			Msg("no official NAV reported; day left unreconciled")
		return nil
	}

	result, err := nav.Replay(seqDay, opening, snapshot)
	if err != nil {
		return fmt.Errorf("replay %s: %w", key, err)
	}

	ledger := result.Ledger
	ledger.OfficialClose = officialClose
	ledger = p.rec.Apply(ledger)
	ledger.ComputedAt = time.Now().UTC()

	if err := p.repo.SaveDailyLedger(ledger); err != nil {
		return fmt.Errorf("save ledger %s: %w", key, err)
	}

	logger.L().Info().
		Str("day", key).
		Str("calculated_close", ledger.CalculatedClose.String()).
		Str("discrepancy", ledger.Discrepancy.String()).
		Str("class", string(ledger.Class)).
		Msg("day recomputed")
	return nil
}

func (p *Pipeline) buildDay(day time.Time) (sequence.Day, error) {
	from, to := p.cal.Window(day)
	events, err := p.repo.GetEventsForWindow(from, to)
	if err != nil {
		return sequence.Day{}, fmt.Errorf("load events for %s: %w", dayKey(day), err)
	}
	seqDay, err := p.seq.Build(day, events)
	if err != nil {
		return sequence.Day{}, fmt.Errorf("sequence %s: %w", dayKey(day), err)
	}
	return seqDay, nil
}

// officialBounds returns the day's opening NAV (the prior trading day's
// official close, falling back to the broker's reported opening for the
// day itself) and the day's official close.
func (p *Pipeline) officialBounds(day time.Time) (opening, official decimal.Decimal, ok bool, err error) {
	today, err := p.repo.GetOfficialNAV(day)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("load official NAV %s: %w", dayKey(day), err)
	}
	if today == nil {
		return decimal.Zero, decimal.Zero, false, nil
	}

	prev, err := p.repo.GetOfficialNAV(tradingday.PrevTradingDay(day))
	if err != nil {
		return decimal.Zero, decimal.Zero, false, fmt.Errorf("load prior official NAV for %s: %w", dayKey(day), err)
	}
	if prev != nil {
		return prev.Closing, today.Closing, true, nil
	}
	return today.Opening, today.Closing, true, nil
}

// coveredDays maps the extract's record timestamps and NAV rows to the
// set of trading days that must be recomputed, in order.
func coveredDays(cal *tradingday.Calendar, extract flex.Extract) []time.Time {
	seen := make(map[string]time.Time)
	for _, rec := range extract.Records {
		d := cal.DayOf(rec.NativeTime)
		seen[dayKey(d)] = d
	}
	for _, n := range extract.OfficialNAVs {
		seen[dayKey(n.TradingDay)] = n.TradingDay
	}

	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func dayKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// cacheExtract writes the raw body to disk; pruneCache later drops the
// superseded fetches.
func (p *Pipeline) cacheExtract(body []byte, refCode string) error {
	if p.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s%s_%s.xml", cachePrefix, time.Now().UTC().Format(cacheTimeFmt), refCode)
	return os.WriteFile(filepath.Join(p.cacheDir, name), body, 0o644)
}

// pruneCache drops all but the newest cached extract.
func (p *Pipeline) pruneCache() {
	if p.cacheDir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(p.cacheDir, cachePrefix+"*.xml"))
	if err != nil || len(matches) <= cacheKeep {
		return
	}
	// Names embed a sortable UTC timestamp.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-cacheKeep] {
		if err := os.Remove(old); err != nil {
			logger.L().Warn().Str("file", old).Err(err).Msg("failed to prune cached extract")
		}
	}
}
