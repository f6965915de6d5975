package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bearhedge/navledger/internal/domain/models"
)

// ParseOptionSymbol parses the broker's compact option descriptor, e.g.
// "TSLA 250718P00300000": underlying, yymmdd expiry, right, strike with
// three implied decimals. Returns ok=false when the descriptor is not an
// option contract.
func ParseOptionSymbol(s string) (models.Instrument, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return models.Instrument{}, false
	}
	underlying, rest := fields[0], fields[1]
	if !isUpperAlpha(underlying) || len(rest) != 15 {
		return models.Instrument{}, false
	}

	expiry, err := time.Parse("060102", rest[:6])
	if err != nil {
		return models.Instrument{}, false
	}

	var right models.OptionRight
	switch rest[6] {
	case 'P':
		right = models.RightPut
	case 'C':
		right = models.RightCall
	default:
		return models.Instrument{}, false
	}

	strikeRaw := rest[7:]
	for _, c := range strikeRaw {
		if c < '0' || c > '9' {
			return models.Instrument{}, false
		}
	}
	strike, err := decimal.NewFromString(fmt.Sprintf("%s.%s", strikeRaw[:5], strikeRaw[5:]))
	if err != nil {
		return models.Instrument{}, false
	}

	return models.Instrument{
		Symbol:     s,
		Underlying: underlying,
		Strike:     strike,
		Right:      right,
		Expiry:     expiry,
	}, true
}
