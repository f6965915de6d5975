package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/reconcile"
	"github.com/bearhedge/navledger/internal/storage"
)

type stubRepo struct {
	ledgers    []models.DailyLedger
	exceptions []models.DailyLedger
	positions  []models.Position
	err        error
}

func (s *stubRepo) UpsertEvents(_ []models.ClassifiedEvent) error         { return nil }
func (s *stubRepo) UpsertUnclassified(_ models.RawRecord, _ string) error { return nil }
func (s *stubRepo) GetEventsForWindow(_, _ time.Time) ([]models.ClassifiedEvent, error) {
	return nil, nil
}
func (s *stubRepo) ListUnclassified() ([]storage.UnclassifiedRecord, error) { return nil, nil }
func (s *stubRepo) SaveDailyLedger(_ models.DailyLedger) error              { return nil }
func (s *stubRepo) ListLedgers(_, _ *time.Time) ([]models.DailyLedger, error) {
	return s.ledgers, s.err
}
func (s *stubRepo) ListExceptions(_, _ *time.Time) ([]models.DailyLedger, error) {
	return s.exceptions, s.err
}
func (s *stubRepo) SavePositions(_ []models.Position) error { return nil }
func (s *stubRepo) GetOpenPositionsAsOf(_ time.Time) ([]models.Position, error) {
	return nil, nil
}
func (s *stubRepo) ListPositions(_ string, _ models.PositionStatus) ([]models.Position, error) {
	return s.positions, s.err
}
func (s *stubRepo) UpsertOfficialNAVs(_ []models.OfficialNAV) error { return nil }
func (s *stubRepo) GetOfficialNAV(_ time.Time) (*models.OfficialNAV, error) {
	return nil, nil
}
func (s *stubRepo) GetCheckpoint(_ string) (*models.IngestionCheckpoint, error) {
	return nil, nil
}
func (s *stubRepo) AdvanceCheckpoint(_ models.IngestionCheckpoint) error { return nil }

type stubRunner struct {
	called bool
	err    error
}

func (s *stubRunner) Run(_ context.Context) error {
	s.called = true
	return s.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGetReconciliations_DerivedFromLedgers(t *testing.T) {
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		ledgers: []models.DailyLedger{
			{
				TradingDay: day,
				OpeningNAV: dec("1000"),
				Adjustments: []models.NAVAdjustment{
					{Amount: dec("129.43"), Source: models.SourcePremium},
				},
				CalculatedClose: dec("1129.43"),
				OfficialClose:   dec("1129.46"),
			},
		},
	}
	svc := NewLedgerService(repo, reconcile.New(dec("0.05")), &stubRunner{})

	recs, err := svc.GetReconciliations(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("GetReconciliations failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if !r.Discrepancy.Equal(dec("0.03")) {
		t.Errorf("expected discrepancy 0.03, got %s", r.Discrepancy)
	}
	if r.Class != models.DiscrepancyZero {
		t.Errorf("expected zero class within tolerance, got %s", r.Class)
	}
	if !r.Sources[models.SourcePremium].Equal(dec("129.43")) {
		t.Errorf("expected premium source 129.43, got %v", r.Sources)
	}
}

func TestGetReconciliations_RepoError(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection refused")}
	svc := NewLedgerService(repo, reconcile.New(dec("0.05")), &stubRunner{})

	if _, err := svc.GetReconciliations(context.Background(), nil, nil); err == nil {
		t.Fatal("expected repository error to propagate")
	}
}

func TestTriggerIngestion_DelegatesToRunner(t *testing.T) {
	runner := &stubRunner{}
	svc := NewLedgerService(&stubRepo{}, reconcile.New(dec("0.05")), runner)

	if err := svc.TriggerIngestion(context.Background()); err != nil {
		t.Fatalf("TriggerIngestion failed: %v", err)
	}
	if !runner.called {
		t.Error("expected runner invoked")
	}

	runner.err = errors.New("fetch failed")
	if err := svc.TriggerIngestion(context.Background()); err == nil {
		t.Error("expected runner error to propagate")
	}
}

func TestGetPositions_PassesThrough(t *testing.T) {
	repo := &stubRepo{positions: []models.Position{{Symbol: "TSLA", Status: models.PositionOpen}}}
	svc := NewLedgerService(repo, reconcile.New(dec("0.05")), &stubRunner{})

	out, err := svc.GetPositions(context.Background(), "TSLA", models.PositionOpen)
	if err != nil || len(out) != 1 {
		t.Fatalf("unexpected result out=%v err=%v", out, err)
	}
}
