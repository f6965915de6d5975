package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/dto"
	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/service"
	"github.com/bearhedge/navledger/internal/storage"
)

// mockLedgerService implements service.LedgerService for testing router wiring.
type mockLedgerService struct {
	ledgers []models.DailyLedger
	err     error
}

func (m *mockLedgerService) GetLedgers(_ context.Context, _, _ *time.Time) ([]models.DailyLedger, error) {
	return m.ledgers, m.err
}
func (m *mockLedgerService) GetReconciliations(_ context.Context, _, _ *time.Time) ([]models.ReconciliationRecord, error) {
	return nil, m.err
}
func (m *mockLedgerService) GetExceptions(_ context.Context, _, _ *time.Time) ([]models.DailyLedger, error) {
	return nil, m.err
}
func (m *mockLedgerService) GetPositions(_ context.Context, _ string, _ models.PositionStatus) ([]models.Position, error) {
	return nil, m.err
}
func (m *mockLedgerService) GetUnclassified(_ context.Context) ([]storage.UnclassifiedRecord, error) {
	return nil, m.err
}
func (m *mockLedgerService) TriggerIngestion(_ context.Context) error { return m.err }

var _ service.LedgerService = (*mockLedgerService)(nil)

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockLedgerService{ledgers: []models.DailyLedger{{
		TradingDay:      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		OpeningNAV:      decimal.RequireFromString("81426.89"),
		CalculatedClose: decimal.RequireFromString("80048.64"),
		OfficialClose:   decimal.RequireFromString("80048.64"),
		Class:           models.DiscrepancyZero,
	}}}
	r := NewRouter(NewHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger?start=2025-07-01&end=2025-07-31", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// RequestID middleware must inject the header
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	var out []dto.LedgerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(out) != 1 || out[0].TradingDay != "2025-07-01" || out[0].CalculatedClose != "80048.64" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestNewRouter_AllRoutesRegistered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(&mockLedgerService{}))

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/ledger"},
		{http.MethodGet, "/api/v1/reconciliation"},
		{http.MethodGet, "/api/v1/exceptions"},
		{http.MethodGet, "/api/v1/positions"},
		{http.MethodGet, "/api/v1/unclassified"},
		{http.MethodPost, "/api/v1/ingest/run"},
	}
	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusNotFound {
			t.Errorf("route %s %s not registered", rt.method, rt.path)
		}
	}
}
