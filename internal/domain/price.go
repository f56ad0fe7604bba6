package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits kept for a price.
const PriceScale = 6

// Price is a non-negative fixed-point amount. It is encoded in JSON as a bare
// number so clients see 249.9 rather than "249.9".
type Price struct {
	decimal.Decimal
}

// NewPrice parses s and rounds it to PriceScale digits.
func NewPrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return Price{d.Round(PriceScale)}, nil
}

// MustPrice is NewPrice for literals; it panics on malformed input.
func MustPrice(s string) Price {
	p, err := NewPrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Rounded returns p rounded to PriceScale digits.
func (p Price) Rounded() Price {
	return Price{p.Decimal.Round(PriceScale)}
}

// Equal reports whether both prices denote the same amount.
func (p Price) Equal(o Price) bool {
	return p.Decimal.Equal(o.Decimal)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

func (p *Price) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	p.Decimal = d.Round(PriceScale)
	return nil
}
