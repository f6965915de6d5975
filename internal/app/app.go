package app

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/config"
	"github.com/bearhedge/navledger/internal/api"
	"github.com/bearhedge/navledger/internal/flex"
	"github.com/bearhedge/navledger/internal/ingestion"
	"github.com/bearhedge/navledger/internal/reconcile"
	"github.com/bearhedge/navledger/internal/sequence"
	"github.com/bearhedge/navledger/internal/service"
	"github.com/bearhedge/navledger/internal/storage"
	"github.com/bearhedge/navledger/internal/tradingday"
)

// schemaEnsurer is an indirection for unit testing; defaults to the real
// schema bootstrap.
var schemaEnsurer = storage.EnsureSchema

// components is the dependency graph shared by the API and the merge
// pipeline.
type components struct {
	db       *sql.DB
	repo     storage.LedgerRepository
	cal      *tradingday.Calendar
	engine   *reconcile.Engine
	pipeline *ingestion.Pipeline
}

// buildComponents connects to Postgres, ensures the schema, and wires the
// domain pieces: calendar, sequencer, reconciliation engine, flex client,
// and the merge pipeline.
func buildComponents(cfg config.Config) (*components, error) {
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := schemaEnsurer(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	cal, err := tradingday.NewCalendar(cfg.Ledger.NativeTZ, cfg.Ledger.ReportingTZ)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid timezone configuration: %w", err)
	}

	tolerance, err := decimal.NewFromString(cfg.Ledger.ToleranceStr)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid tolerance %q: %w", cfg.Ledger.ToleranceStr, err)
	}

	repo := storage.NewLedgerRepository(db)
	seq := sequence.New(cal, time.Duration(cfg.Ledger.TradeBlockMinutes)*time.Minute)
	engine := reconcile.New(tolerance)

	client := flex.NewClient(
		cfg.Flex.BaseURL,
		cfg.Flex.Token,
		cfg.Flex.QueryID,
		time.Duration(cfg.Flex.PollInitialSeconds)*time.Second,
		cfg.Flex.PollMaxRetries,
		&http.Client{Timeout: 60 * time.Second},
	)
	pipeline := ingestion.New(repo, client, flex.Parse, cal, seq, engine, cfg.Flex.CacheDir)

	return &components{
		db:       db,
		repo:     repo,
		cal:      cal,
		engine:   engine,
		pipeline: pipeline,
	}, nil
}

// InitializeApp sets up all application dependencies and returns a fully
// configured Gin router, a cleanup function for graceful shutdown, and any
// error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL and ensures the ledger schema.
//   - Initializes the repository, service, and handler layers.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	c, err := buildComponents(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := service.NewLedgerService(c.repo, c.engine, c.pipeline)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(c.db.Ping)
	healthHandler.Register(router)

	cleanup := func() {
		_ = c.db.Close()
	}

	return router, cleanup, nil
}

// InitializeIngestion wires the merge pipeline and its daily scheduler for
// the non-HTTP run modes.
func InitializeIngestion() (*ingestion.Pipeline, *ingestion.Scheduler, func(), error) {
	cfg := config.AppConfig

	c, err := buildComponents(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	scheduler := ingestion.NewScheduler(c.pipeline, c.cal.Reporting(), cfg.Ledger.ScheduleHour)

	cleanup := func() {
		_ = c.db.Close()
	}
	return c.pipeline, scheduler, cleanup, nil
}
