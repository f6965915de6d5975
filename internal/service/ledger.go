package service

import (
	"context"
	"time"

	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/reconcile"
	"github.com/bearhedge/navledger/internal/storage"
)

// LedgerService defines business logic for querying the NAV ledger and
// triggering merges.
type LedgerService interface {
	GetLedgers(ctx context.Context, start, end *time.Time) ([]models.DailyLedger, error)
	GetReconciliations(ctx context.Context, start, end *time.Time) ([]models.ReconciliationRecord, error)
	GetExceptions(ctx context.Context, start, end *time.Time) ([]models.DailyLedger, error)
	GetPositions(ctx context.Context, symbol string, status models.PositionStatus) ([]models.Position, error)
	GetUnclassified(ctx context.Context) ([]storage.UnclassifiedRecord, error)
	TriggerIngestion(ctx context.Context) error
}

// Runner triggers one merge cycle. Satisfied by *ingestion.Pipeline.
type Runner interface {
	Run(ctx context.Context) error
}

type ledgerService struct {
	repo   storage.LedgerRepository
	rec    *reconcile.Engine
	runner Runner
}

func NewLedgerService(repo storage.LedgerRepository, rec *reconcile.Engine, runner Runner) LedgerService {
	return &ledgerService{repo: repo, rec: rec, runner: runner}
}

func (s *ledgerService) GetLedgers(ctx context.Context, start, end *time.Time) ([]models.DailyLedger, error) {
	return s.repo.ListLedgers(start, end)
}

// GetReconciliations derives the expected-vs-official view from the stored
// ledgers. Derived on read so it can never drift from the ledger rows.
func (s *ledgerService) GetReconciliations(ctx context.Context, start, end *time.Time) ([]models.ReconciliationRecord, error) {
	ledgers, err := s.repo.ListLedgers(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]models.ReconciliationRecord, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, s.rec.Reconcile(l))
	}
	return out, nil
}

func (s *ledgerService) GetExceptions(ctx context.Context, start, end *time.Time) ([]models.DailyLedger, error) {
	return s.repo.ListExceptions(start, end)
}

func (s *ledgerService) GetPositions(ctx context.Context, symbol string, status models.PositionStatus) ([]models.Position, error) {
	return s.repo.ListPositions(symbol, status)
}

// GetUnclassified lists records parked at ingestion because their semantic
// kind could not be resolved. Their days are not final until resolved.
func (s *ledgerService) GetUnclassified(ctx context.Context) ([]storage.UnclassifiedRecord, error) {
	return s.repo.ListUnclassified()
}

func (s *ledgerService) TriggerIngestion(ctx context.Context) error {
	return s.runner.Run(ctx)
}
