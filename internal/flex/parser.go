package flex

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/classify"
	"github.com/bearhedge/navledger/internal/domain/models"
)

// Extract is everything the merge pipeline needs from one downloaded
// statement: the raw activity records, the broker's official per-day NAV
// figures, and the statement's coverage range.
type Extract struct {
	AccountID    string
	FromDate     time.Time
	ToDate       time.Time
	Records      []models.RawRecord
	OfficialNAVs []models.OfficialNAV
}

// --- statement XML shape ---

type queryResponse struct {
	XMLName    xml.Name        `xml:"FlexQueryResponse"`
	Statements []flexStatement `xml:"FlexStatements>FlexStatement"`
}

type flexStatement struct {
	AccountID        string             `xml:"accountId,attr"`
	FromDate         string             `xml:"fromDate,attr"`
	ToDate           string             `xml:"toDate,attr"`
	Trades           []tradeRow         `xml:"Trades>Trade"`
	CashTransactions []cashRow          `xml:"CashTransactions>CashTransaction"`
	OptionEAE        []optionEAERow     `xml:"OptionEAE>OptionEAE"`
	EquitySummaries  []equitySummaryRow `xml:"EquitySummaries>EquitySummaryInBase"`
}

type tradeRow struct {
	TransactionID    string `xml:"transactionID,attr"`
	TransactionType  string `xml:"transactionType,attr"`
	AssetCategory    string `xml:"assetCategory,attr"`
	Symbol           string `xml:"symbol,attr"`
	UnderlyingSymbol string `xml:"underlyingSymbol,attr"`
	Strike           string `xml:"strike,attr"`
	PutCall          string `xml:"putCall,attr"`
	Expiry           string `xml:"expiry,attr"`
	Multiplier       string `xml:"multiplier,attr"`
	Quantity         string `xml:"quantity,attr"`
	TradePrice       string `xml:"tradePrice,attr"`
	Proceeds         string `xml:"proceeds,attr"`
	IBCommission     string `xml:"ibCommission,attr"`
	Currency         string `xml:"currency,attr"`
	FXRateToBase     string `xml:"fxRateToBase,attr"`
	DateTime         string `xml:"dateTime,attr"`
	Description      string `xml:"description,attr"`
}

type cashRow struct {
	TransactionID string `xml:"transactionID,attr"`
	Type          string `xml:"type,attr"`
	Amount        string `xml:"amount,attr"`
	Currency      string `xml:"currency,attr"`
	FXRateToBase  string `xml:"fxRateToBase,attr"`
	DateTime      string `xml:"dateTime,attr"`
	Description   string `xml:"description,attr"`
}

type optionEAERow struct {
	TransactionID string `xml:"transactionID,attr"`
	AssetCategory string `xml:"assetCategory,attr"`
	Symbol        string `xml:"symbol,attr"`
	Quantity      string `xml:"quantity,attr"`
	TradePrice    string `xml:"tradePrice,attr"`
	Multiplier    string `xml:"multiplier,attr"`
	Currency      string `xml:"currency,attr"`
	FXRateToBase  string `xml:"fxRateToBase,attr"`
	DateTime      string `xml:"dateTime,attr"`
	Description   string `xml:"description,attr"`
}

type equitySummaryRow struct {
	ReportDate     string `xml:"reportDate,attr"`
	Opening        string `xml:"openingNAV,attr"`
	Closing        string `xml:"closingNAV,attr"`
	Currency       string `xml:"currency,attr"`
	ConversionRate string `xml:"conversionRate,attr"`
}

// Parse decodes a downloaded statement into raw records and official NAV
// rows. It is strict: a record that does not resolve to a known kind, or
// a field that does not parse, rejects the extract. (Semantic
// classification of the parsed records is the classifier's job and is
// recoverable per record; structural validity is not.)
func Parse(body []byte, native *time.Location) (Extract, error) {
	var resp queryResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return Extract{}, fmt.Errorf("decode extract: %w", err)
	}
	if len(resp.Statements) == 0 {
		return Extract{}, fmt.Errorf("extract contains no statements")
	}

	out := Extract{}
	for _, stmt := range resp.Statements {
		if out.AccountID == "" {
			out.AccountID = stmt.AccountID
		}
		from, err := parseDate(stmt.FromDate)
		if err != nil {
			return Extract{}, fmt.Errorf("statement fromDate: %w", err)
		}
		to, err := parseDate(stmt.ToDate)
		if err != nil {
			return Extract{}, fmt.Errorf("statement toDate: %w", err)
		}
		if out.FromDate.IsZero() || from.Before(out.FromDate) {
			out.FromDate = from
		}
		if to.After(out.ToDate) {
			out.ToDate = to
		}

		for _, row := range stmt.Trades {
			rec, err := tradeToRecord(row, native)
			if err != nil {
				return Extract{}, fmt.Errorf("trade %s: %w", row.TransactionID, err)
			}
			out.Records = append(out.Records, rec)
		}
		for _, row := range stmt.CashTransactions {
			rec, err := cashToRecord(row, native)
			if err != nil {
				return Extract{}, fmt.Errorf("cash transaction %s: %w", row.TransactionID, err)
			}
			out.Records = append(out.Records, rec)
		}
		for _, row := range stmt.OptionEAE {
			rec, err := eaeToRecord(row, native)
			if err != nil {
				return Extract{}, fmt.Errorf("exercise/expiry %s: %w", row.TransactionID, err)
			}
			out.Records = append(out.Records, rec)
		}
		for _, row := range stmt.EquitySummaries {
			nav, err := summaryToOfficial(row)
			if err != nil {
				return Extract{}, fmt.Errorf("equity summary %s: %w", row.ReportDate, err)
			}
			out.OfficialNAVs = append(out.OfficialNAVs, nav)
		}
	}
	return out, nil
}

func tradeToRecord(row tradeRow, native *time.Location) (models.RawRecord, error) {
	if row.TransactionID == "" {
		return models.RawRecord{}, fmt.Errorf("missing transactionID")
	}

	var kind models.RecordKind
	switch row.TransactionType {
	case "ExchTrade":
		kind = models.KindTrade
	case "BookTrade":
		kind = models.KindBookTrade
	default:
		return models.RawRecord{}, fmt.Errorf("unknown transactionType %q", row.TransactionType)
	}

	inst, err := buildInstrument(row.AssetCategory, row.Symbol, row.UnderlyingSymbol, row.Strike, row.PutCall, row.Expiry, row.Multiplier)
	if err != nil {
		return models.RawRecord{}, err
	}

	rec := models.RawRecord{
		TxnID:       row.TransactionID,
		Kind:        kind,
		Instrument:  inst,
		Currency:    row.Currency,
		Description: row.Description,
	}
	if rec.Quantity, err = parseDecimal(row.Quantity, "quantity"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.Price, err = parseDecimal(row.TradePrice, "tradePrice"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.Amount, err = parseDecimal(row.Proceeds, "proceeds"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.Commission, err = parseDecimal(row.IBCommission, "ibCommission"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.FXRateToBase, err = parseRate(row.FXRateToBase); err != nil {
		return models.RawRecord{}, err
	}
	if rec.NativeTime, err = parseDateTime(row.DateTime, native); err != nil {
		return models.RawRecord{}, err
	}
	return rec, nil
}

func cashToRecord(row cashRow, native *time.Location) (models.RawRecord, error) {
	if row.TransactionID == "" {
		return models.RawRecord{}, fmt.Errorf("missing transactionID")
	}
	rec := models.RawRecord{
		TxnID:       row.TransactionID,
		Kind:        models.KindCashTransaction,
		Currency:    row.Currency,
		CashType:    row.Type,
		Description: row.Description,
	}
	var err error
	if rec.Amount, err = parseDecimal(row.Amount, "amount"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.FXRateToBase, err = parseRate(row.FXRateToBase); err != nil {
		return models.RawRecord{}, err
	}
	if rec.NativeTime, err = parseDateTime(row.DateTime, native); err != nil {
		return models.RawRecord{}, err
	}
	return rec, nil
}

func eaeToRecord(row optionEAERow, native *time.Location) (models.RawRecord, error) {
	if row.TransactionID == "" {
		return models.RawRecord{}, fmt.Errorf("missing transactionID")
	}
	inst, err := buildInstrument(row.AssetCategory, row.Symbol, "", "", "", "", row.Multiplier)
	if err != nil {
		return models.RawRecord{}, err
	}
	rec := models.RawRecord{
		TxnID:       row.TransactionID,
		Kind:        models.KindExerciseExpiry,
		Instrument:  inst,
		Currency:    row.Currency,
		Description: row.Description,
	}
	if rec.Quantity, err = parseDecimal(row.Quantity, "quantity"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.Price, err = parseDecimal(row.TradePrice, "tradePrice"); err != nil {
		return models.RawRecord{}, err
	}
	if rec.FXRateToBase, err = parseRate(row.FXRateToBase); err != nil {
		return models.RawRecord{}, err
	}
	if rec.NativeTime, err = parseDateTime(row.DateTime, native); err != nil {
		return models.RawRecord{}, err
	}
	return rec, nil
}

func summaryToOfficial(row equitySummaryRow) (models.OfficialNAV, error) {
	day, err := parseDate(row.ReportDate)
	if err != nil {
		return models.OfficialNAV{}, err
	}
	nav := models.OfficialNAV{TradingDay: day, Currency: row.Currency}
	if nav.Opening, err = parseDecimal(row.Opening, "openingNAV"); err != nil {
		return models.OfficialNAV{}, err
	}
	if nav.Closing, err = parseDecimal(row.Closing, "closingNAV"); err != nil {
		return models.OfficialNAV{}, err
	}
	if nav.FXRate, err = parseRate(row.ConversionRate); err != nil {
		return models.OfficialNAV{}, err
	}
	return nav, nil
}

// buildInstrument assembles the instrument descriptor. Option rows carry
// structured attributes; when those are absent the compact symbol is
// parsed instead. Unknown asset categories are rejected.
func buildInstrument(category, symbol, underlying, strike, putCall, expiry, multiplier string) (models.Instrument, error) {
	mult := int64(1)
	if multiplier != "" {
		m, err := parseDecimal(multiplier, "multiplier")
		if err != nil {
			return models.Instrument{}, err
		}
		mult = m.IntPart()
	}

	switch category {
	case "STK":
		return models.Instrument{Symbol: symbol, Multiplier: mult}, nil

	case "OPT":
		if underlying != "" && strike != "" && putCall != "" && expiry != "" {
			st, err := parseDecimal(strike, "strike")
			if err != nil {
				return models.Instrument{}, err
			}
			exp, err := parseDate(expiry)
			if err != nil {
				return models.Instrument{}, err
			}
			var right models.OptionRight
			switch putCall {
			case "P":
				right = models.RightPut
			case "C":
				right = models.RightCall
			default:
				return models.Instrument{}, fmt.Errorf("unknown putCall %q", putCall)
			}
			return models.Instrument{
				Symbol:     symbol,
				Underlying: underlying,
				Strike:     st,
				Right:      right,
				Expiry:     exp,
				Multiplier: mult,
			}, nil
		}
		if inst, ok := classify.ParseOptionSymbol(symbol); ok {
			inst.Multiplier = mult
			return inst, nil
		}
		return models.Instrument{}, fmt.Errorf("option row with unparseable descriptor %q", symbol)

	default:
		return models.Instrument{}, fmt.Errorf("unknown assetCategory %q", category)
	}
}

// --- field parsing ---

func parseDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q", field, s)
	}
	return d, nil
}

// parseRate defaults an absent conversion rate to 1 (already in base).
func parseRate(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.NewFromInt(1), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("invalid fx rate %q", s)
	}
	return d, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parseDateTime(s string, native *time.Location) (time.Time, error) {
	for _, layout := range []string{"20060102;150405", "2006-01-02;15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, s, native); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid dateTime %q", s)
}
