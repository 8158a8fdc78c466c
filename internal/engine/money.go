package engine

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
)

// currency rounds and formats amounts at the subunit precision of an ISO 4217 code.
type currency struct {
	code     string
	fraction int32
}

func lookupCurrency(code string) (currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	cur := money.GetCurrency(code)
	if cur == nil {
		return currency{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownCurrency, code)
	}
	return currency{code: cur.Code, fraction: int32(cur.Fraction)}, nil
}

// round rounds half away from zero to the smallest subunit.
func (c currency) round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.fraction)
}

func (c currency) format(d decimal.Decimal) string {
	return money.New(c.round(d).Shift(c.fraction).IntPart(), c.code).Display()
}

// FormatMoney renders an amount with the currency's grapheme and separators.
// Unknown codes fall back to the plain decimal followed by the code.
func FormatMoney(amount decimal.Decimal, code string) string {
	c, err := lookupCurrency(code)
	if err != nil {
		return amount.String() + " " + code
	}
	return c.format(amount)
}
