package flex

import (
	"strings"
	"testing"
	"time"

	"github.com/bearhedge/navledger/internal/domain/models"
)

var testNY = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

const sampleExtract = `<FlexQueryResponse queryName="navledger" type="AF">
  <FlexStatements count="1">
    <FlexStatement accountId="U1234567" fromDate="2025-07-01" toDate="2025-07-02">
      <Trades>
        <Trade transactionID="1001" transactionType="ExchTrade" assetCategory="OPT"
          symbol="TSLA 250718P00300000" underlyingSymbol="TSLA" strike="300" putCall="P"
          expiry="2025-07-18" multiplier="100" quantity="-1" tradePrice="1.31"
          proceeds="131.00" ibCommission="-1.57" currency="USD" fxRateToBase="7.84985"
          dateTime="20250701;103015" description="TSLA 18JUL25 300 P"/>
        <Trade transactionID="1002" transactionType="BookTrade" assetCategory="STK"
          symbol="TSLA" quantity="-100" tradePrice="300" proceeds="30000.00"
          ibCommission="0" currency="USD" fxRateToBase="7.84985"
          dateTime="20250701;170000" description="Assignment"/>
      </Trades>
      <CashTransactions>
        <CashTransaction transactionID="2001" type="Deposits/Withdrawals" amount="-1495.86"
          currency="HKD" fxRateToBase="1" dateTime="20250701;120000"
          description="Disbursement"/>
      </CashTransactions>
      <OptionEAE>
        <OptionEAE transactionID="3001" assetCategory="OPT" symbol="TSLA 250701C00320000"
          quantity="1" tradePrice="0" multiplier="100" currency="USD" fxRateToBase="7.84985"
          dateTime="20250701;160000" description="Expired"/>
      </OptionEAE>
      <EquitySummaries>
        <EquitySummaryInBase reportDate="2025-07-01" openingNAV="81426.89"
          closingNAV="80048.64" currency="HKD" conversionRate="1"/>
      </EquitySummaries>
    </FlexStatement>
  </FlexStatements>
</FlexQueryResponse>`

func TestParse_FullStatement(t *testing.T) {
	ex, err := Parse([]byte(sampleExtract), testNY)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if ex.AccountID != "U1234567" {
		t.Errorf("expected account U1234567, got %s", ex.AccountID)
	}
	if got := ex.FromDate.Format("2006-01-02"); got != "2025-07-01" {
		t.Errorf("expected coverage start 2025-07-01, got %s", got)
	}
	if got := ex.ToDate.Format("2006-01-02"); got != "2025-07-02" {
		t.Errorf("expected coverage end 2025-07-02, got %s", got)
	}
	if len(ex.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(ex.Records))
	}
	if len(ex.OfficialNAVs) != 1 {
		t.Fatalf("expected 1 official NAV row, got %d", len(ex.OfficialNAVs))
	}

	byID := map[string]models.RawRecord{}
	for _, r := range ex.Records {
		byID[r.TxnID] = r
	}

	opt := byID["1001"]
	if opt.Kind != models.KindTrade {
		t.Errorf("expected trade kind, got %s", opt.Kind)
	}
	if !opt.Instrument.IsOption() {
		t.Errorf("expected option instrument for 1001")
	}
	if opt.Instrument.Underlying != "TSLA" || opt.Instrument.Right != models.RightPut {
		t.Errorf("unexpected option instrument: %+v", opt.Instrument)
	}
	if opt.Instrument.Multiplier != 100 {
		t.Errorf("expected multiplier 100, got %d", opt.Instrument.Multiplier)
	}
	if opt.NativeTime.Location() != testNY {
		t.Errorf("expected native timezone on record time")
	}
	if got := opt.NativeTime.Format("15:04:05"); got != "10:30:15" {
		t.Errorf("expected native time 10:30:15, got %s", got)
	}
	if opt.Amount.String() != "131" {
		t.Errorf("expected proceeds 131, got %s", opt.Amount)
	}

	book := byID["1002"]
	if book.Kind != models.KindBookTrade {
		t.Errorf("expected book_trade kind, got %s", book.Kind)
	}
	if book.Instrument.IsOption() {
		t.Errorf("expected equity instrument for 1002")
	}

	cash := byID["2001"]
	if cash.Kind != models.KindCashTransaction {
		t.Errorf("expected cash_transaction kind, got %s", cash.Kind)
	}
	if cash.CashType != "Deposits/Withdrawals" {
		t.Errorf("expected raw cash type preserved, got %s", cash.CashType)
	}
	if cash.Amount.String() != "-1495.86" {
		t.Errorf("expected amount -1495.86, got %s", cash.Amount)
	}

	eae := byID["3001"]
	if eae.Kind != models.KindExerciseExpiry {
		t.Errorf("expected exercise_expiry kind, got %s", eae.Kind)
	}
	if !eae.Instrument.IsOption() {
		t.Errorf("expected option parsed from compact symbol for 3001")
	}
	if eae.Instrument.Strike.String() != "320" {
		t.Errorf("expected strike 320, got %s", eae.Instrument.Strike)
	}

	nav := ex.OfficialNAVs[0]
	if nav.Opening.String() != "81426.89" || nav.Closing.String() != "80048.64" {
		t.Errorf("unexpected official NAV: %+v", nav)
	}
	if got := nav.TradingDay.Format("2006-01-02"); got != "2025-07-01" {
		t.Errorf("expected trading day 2025-07-01, got %s", got)
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "malformed xml",
			body: "<FlexQueryResponse><oops",
			want: "decode extract",
		},
		{
			name: "no statements",
			body: `<FlexQueryResponse><FlexStatements count="0"></FlexStatements></FlexQueryResponse>`,
			want: "no statements",
		},
		{
			name: "unknown transaction type",
			body: statementWith(`<Trades><Trade transactionID="1" transactionType="FracShare" assetCategory="STK" symbol="X" dateTime="20250701;100000"/></Trades>`),
			want: "unknown transactionType",
		},
		{
			name: "unknown asset category",
			body: statementWith(`<Trades><Trade transactionID="1" transactionType="ExchTrade" assetCategory="FUT" symbol="ESU5" dateTime="20250701;100000"/></Trades>`),
			want: "unknown assetCategory",
		},
		{
			name: "missing transaction id",
			body: statementWith(`<Trades><Trade transactionType="ExchTrade" assetCategory="STK" symbol="X" dateTime="20250701;100000"/></Trades>`),
			want: "missing transactionID",
		},
		{
			name: "bad quantity",
			body: statementWith(`<Trades><Trade transactionID="1" transactionType="ExchTrade" assetCategory="STK" symbol="X" quantity="many" dateTime="20250701;100000"/></Trades>`),
			want: "invalid quantity",
		},
		{
			name: "bad timestamp",
			body: statementWith(`<CashTransactions><CashTransaction transactionID="1" type="Deposits" amount="5" dateTime="yesterday"/></CashTransactions>`),
			want: "invalid dateTime",
		},
		{
			name: "unparseable option descriptor",
			body: statementWith(`<OptionEAE><OptionEAE transactionID="1" assetCategory="OPT" symbol="garbage" dateTime="20250701;160000"/></OptionEAE>`),
			want: "unparseable descriptor",
		},
		{
			name: "bad official nav figure",
			body: statementWith(`<EquitySummaries><EquitySummaryInBase reportDate="2025-07-01" openingNAV="lots" closingNAV="1"/></EquitySummaries>`),
			want: "invalid openingNAV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body), testNY)
			if err == nil {
				t.Fatalf("expected rejection, got nil error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_DefaultsFXRateToOne(t *testing.T) {
	body := statementWith(`<CashTransactions><CashTransaction transactionID="1" type="Deposits" amount="100" currency="HKD" dateTime="20250701;120000"/></CashTransactions>`)
	ex, err := Parse([]byte(body), testNY)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := ex.Records[0].AmountInBase().String(); got != "100" {
		t.Errorf("expected base amount 100 with default rate, got %s", got)
	}
}

func TestParse_RejectsNonPositiveRate(t *testing.T) {
	body := statementWith(`<CashTransactions><CashTransaction transactionID="1" type="Deposits" amount="100" fxRateToBase="-1" dateTime="20250701;120000"/></CashTransactions>`)
	_, err := Parse([]byte(body), testNY)
	if err == nil || !strings.Contains(err.Error(), "invalid fx rate") {
		t.Errorf("expected fx rate rejection, got %v", err)
	}
}

func statementWith(inner string) string {
	return `<FlexQueryResponse><FlexStatements count="1">` +
		`<FlexStatement accountId="U1" fromDate="2025-07-01" toDate="2025-07-01">` +
		inner +
		`</FlexStatement></FlexStatements></FlexQueryResponse>`
}

func TestParse_ErrorWrapsPerRecord(t *testing.T) {
	body := statementWith(`<Trades><Trade transactionID="909" transactionType="ExchTrade" assetCategory="STK" symbol="X" tradePrice="??" dateTime="20250701;100000"/></Trades>`)
	_, err := Parse([]byte(body), testNY)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "trade 909") {
		t.Errorf("expected error to name the offending record, got %v", err)
	}
}
