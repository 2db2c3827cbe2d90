package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money columns are selected as ::text and parsed here so numeric precision
// never goes through float64.
func parseMoney(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", column, s, err)
	}
	return d, nil
}

func parseOptionalMoney(column string, s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseMoney(column, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
