package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func ledgerWith(t *testing.T, opening string, adjustments []string, official string) models.DailyLedger {
	t.Helper()
	l := models.DailyLedger{
		TradingDay:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		OpeningNAV:    dec(t, opening),
		OfficialClose: dec(t, official),
	}
	for i, a := range adjustments {
		l.Adjustments = append(l.Adjustments, models.NAVAdjustment{
			Amount: dec(t, a),
			Source: models.SourcePremium,
			TxnIDs: []string{string(rune('A' + i))},
		})
	}
	l.CalculatedClose = l.OpeningNAV.Add(l.AdjustmentTotal())
	return l
}

func TestReconcile_TableDriven(t *testing.T) {
	engine := New(dec(t, "0.05"))

	cases := []struct {
		name        string
		opening     string
		adjustments []string
		official    string
		wantClass   models.DiscrepancyClass
		wantDisc    string
	}{
		{
			name:    "exact match",
			opening: "1000", adjustments: []string{"10", "-2.50"}, official: "1007.50",
			wantClass: models.DiscrepancyZero, wantDisc: "0",
		},
		{
			name:    "rounding residue below tolerance",
			opening: "1000", adjustments: []string{"10"}, official: "1010.03",
			wantClass: models.DiscrepancyZero, wantDisc: "0.03",
		},
		{
			name:    "mark-to-market residue is an exception",
			opening: "1000", adjustments: []string{"10"}, official: "1041.02",
			wantClass: models.DiscrepancyException, wantDisc: "31.02",
		},
		{
			name:    "negative exception",
			opening: "1000", adjustments: []string{}, official: "968.98",
			wantClass: models.DiscrepancyException, wantDisc: "-31.02",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := engine.Reconcile(ledgerWith(t, tc.opening, tc.adjustments, tc.official))
			if rec.Class != tc.wantClass {
				t.Fatalf("class=%v, want %v", rec.Class, tc.wantClass)
			}
			if !rec.Discrepancy.Equal(dec(t, tc.wantDisc)) {
				t.Fatalf("discrepancy=%s, want %s", rec.Discrepancy, tc.wantDisc)
			}
			if tc.wantClass == models.DiscrepancyException {
				if rec.Notes == "" || !strings.Contains(rec.Notes, "unexplained") {
					t.Fatalf("exception must carry attribution notes, got %q", rec.Notes)
				}
			}
		})
	}
}

// The engine never plugs the gap: the ledger's adjustments are untouched
// and expected close is derived purely from them.
func TestReconcile_NeverPlugs(t *testing.T) {
	engine := New(dec(t, "0.05"))
	l := ledgerWith(t, "1000", []string{"10"}, "1041.02")

	before := len(l.Adjustments)
	out := engine.Apply(l)

	if len(out.Adjustments) != before {
		t.Fatalf("adjustments mutated: %d -> %d", before, len(out.Adjustments))
	}
	if !out.CalculatedClose.Equal(dec(t, "1010")) {
		t.Fatalf("calculated close changed: %s", out.CalculatedClose)
	}
	if out.Class != models.DiscrepancyException {
		t.Fatalf("class=%v", out.Class)
	}
	if !out.Discrepancy.Equal(dec(t, "31.02")) {
		t.Fatalf("discrepancy=%s", out.Discrepancy)
	}
}

func TestReconcile_SourcesBreakdown(t *testing.T) {
	engine := New(dec(t, "0.05"))
	l := models.DailyLedger{
		TradingDay:    time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		OpeningNAV:    dec(t, "5000"),
		OfficialClose: dec(t, "5100"),
		Adjustments: []models.NAVAdjustment{
			{Amount: dec(t, "129.43"), Source: models.SourcePremium},
			{Amount: dec(t, "-11.82"), Source: models.SourceCommission},
			{Amount: dec(t, "-500"), Source: models.SourceCoverPL},
		},
	}
	rec := engine.Reconcile(l)

	if !rec.ExpectedClose.Equal(dec(t, "4617.61")) {
		t.Fatalf("expected close %s", rec.ExpectedClose)
	}
	if !rec.Sources[models.SourceCoverPL].Equal(dec(t, "-500")) {
		t.Fatalf("cover source missing: %+v", rec.Sources)
	}
	if rec.Class != models.DiscrepancyException {
		t.Fatalf("class=%v", rec.Class)
	}
}
