package dto

import (
	"time"

	"github.com/bearhedge/navledger/internal/domain/models"
)

// AdjustmentResponse is one NAV movement inside a ledger day.
type AdjustmentResponse struct {
	At     time.Time `json:"at"`
	Amount string    `json:"amount" example:"129.43"`
	Source string    `json:"source" example:"premium"`
	TxnIDs []string  `json:"txn_ids"`
	Note   string    `json:"note,omitempty"`
}

// LedgerResponse represents one trading day of the NAV ledger as returned
// by GET /api/v1/ledger.
//
// Monetary figures are serialized as strings to keep exact decimal values
// on the wire.
type LedgerResponse struct {
	TradingDay      string               `json:"trading_day" example:"2025-07-01"`
	OpeningNAV      string               `json:"opening_nav" example:"81426.89"`
	Adjustments     []AdjustmentResponse `json:"adjustments"`
	CalculatedClose string               `json:"calculated_close" example:"80048.64"`
	OfficialClose   string               `json:"official_close" example:"80048.64"`
	Discrepancy     string               `json:"discrepancy" example:"0"`
	Class           string               `json:"class" example:"zero"`
	Notes           string               `json:"notes,omitempty"`
	ComputedAt      time.Time            `json:"computed_at"`
}

// ReconciliationResponse is the expected-vs-official view for one day,
// returned by GET /api/v1/reconciliation.
type ReconciliationResponse struct {
	TradingDay    string            `json:"trading_day" example:"2025-07-01"`
	ExpectedClose string            `json:"expected_close" example:"80048.64"`
	OfficialClose string            `json:"official_close" example:"80048.64"`
	Discrepancy   string            `json:"discrepancy" example:"0"`
	Class         string            `json:"class" example:"zero"`
	Sources       map[string]string `json:"sources"`
	Notes         string            `json:"notes,omitempty"`
}

// PositionResponse is one assignment position, returned by
// GET /api/v1/positions.
type PositionResponse struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol" example:"TSLA"`
	Quantity     string     `json:"quantity" example:"-100"`
	EntryPrice   string     `json:"entry_price" example:"300"`
	EntryTime    time.Time  `json:"entry_time"`
	Multiplier   int64      `json:"multiplier" example:"100"`
	OpeningTxnID string     `json:"opening_txn_id"`
	ExitPrice    string     `json:"exit_price,omitempty"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
	ClosingTxnID string     `json:"closing_txn_id,omitempty"`
	RealizedPL   string     `json:"realized_pl,omitempty"`
	Status       string     `json:"status" example:"open"`
}

// UnclassifiedResponse is one parked record from the data-quality surface,
// returned by GET /api/v1/unclassified.
type UnclassifiedResponse struct {
	TxnID      string    `json:"txn_id"`
	RecordKind string    `json:"record_kind" example:"book_trade"`
	Symbol     string    `json:"symbol,omitempty"`
	NativeTime time.Time `json:"native_time"`
	Reason     string    `json:"reason"`
	SeenAt     time.Time `json:"seen_at"`
}

// IngestRunResponse acknowledges a manually triggered merge.
type IngestRunResponse struct {
	Status    string    `json:"status" example:"completed"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   string    `json:"elapsed" example:"1.2s"`
}

// NewLedgerResponse maps a domain ledger onto the API contract.
func NewLedgerResponse(l models.DailyLedger) LedgerResponse {
	adjustments := make([]AdjustmentResponse, 0, len(l.Adjustments))
	for _, a := range l.Adjustments {
		adjustments = append(adjustments, AdjustmentResponse{
			At:     a.At,
			Amount: a.Amount.String(),
			Source: string(a.Source),
			TxnIDs: a.TxnIDs,
			Note:   a.Note,
		})
	}
	return LedgerResponse{
		TradingDay:      l.TradingDay.Format("2006-01-02"),
		OpeningNAV:      l.OpeningNAV.String(),
		Adjustments:     adjustments,
		CalculatedClose: l.CalculatedClose.String(),
		OfficialClose:   l.OfficialClose.String(),
		Discrepancy:     l.Discrepancy.String(),
		Class:           string(l.Class),
		Notes:           l.Notes,
		ComputedAt:      l.ComputedAt,
	}
}

// NewReconciliationResponse maps a reconciliation record onto the API
// contract.
func NewReconciliationResponse(r models.ReconciliationRecord) ReconciliationResponse {
	sources := make(map[string]string, len(r.Sources))
	for src, amount := range r.Sources {
		sources[string(src)] = amount.String()
	}
	return ReconciliationResponse{
		TradingDay:    r.TradingDay.Format("2006-01-02"),
		ExpectedClose: r.ExpectedClose.String(),
		OfficialClose: r.OfficialClose.String(),
		Discrepancy:   r.Discrepancy.String(),
		Class:         string(r.Class),
		Sources:       sources,
		Notes:         r.Notes,
	}
}

// NewPositionResponse maps a position onto the API contract. Exit fields
// are omitted while the position is open.
func NewPositionResponse(p models.Position) PositionResponse {
	resp := PositionResponse{
		ID:           p.ID,
		Symbol:       p.Symbol,
		Quantity:     p.Quantity.String(),
		EntryPrice:   p.EntryPrice.String(),
		EntryTime:    p.EntryTime,
		Multiplier:   p.Multiplier,
		OpeningTxnID: p.OpeningTxnID,
		Status:       string(p.Status),
	}
	if p.Status == models.PositionClosed {
		resp.ExitPrice = p.ExitPrice.String()
		exit := p.ExitTime
		resp.ExitTime = &exit
		resp.ClosingTxnID = p.ClosingTxnID
		resp.RealizedPL = p.RealizedPL.String()
	}
	return resp
}
