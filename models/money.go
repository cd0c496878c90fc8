package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency is fixed; the storefront only sells in euros.
const Currency = "EUR"

// Money is an amount in euro cents.
type Money int64

// ParseMoney converts a decimal string such as "3.95" into cents, rounding
// half-up when more than two fractional digits are given.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}

	roundUp := len(frac) > 2 && frac[2] >= '5'
	frac = (frac + "00")[:2]
	cents, _ := strconv.ParseInt(frac, 10, 64)

	m := Money(units*100 + cents)
	if roundUp {
		m++
	}
	return m, nil
}

// MoneyFromFloat converts a float price (as found in YAML or env config) to
// cents using its shortest decimal representation, so 3.95 stays 395.
func MoneyFromFloat(v float64) (Money, error) {
	return ParseMoney(strconv.FormatFloat(v, 'f', -1, 64))
}

// Mul multiplies by a quantity.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// Float64 is used only for presentation (catalog listing).
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// String renders the gateway amount format, e.g. "165.90".
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

// Amount is the wire representation used by payment gateways.
type Amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// ToAmount wraps the value in the storefront currency.
func (m Money) ToAmount() Amount {
	return Amount{Currency: Currency, Value: m.String()}
}
