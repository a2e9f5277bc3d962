package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency represents a currency code (ISO 4217)
type Currency string

// UGX is the only currency SchoolPay settles in.
const UGX Currency = "UGX"

// Money is an immutable monetary amount in a single currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money with the given amount and currency.
// An empty currency defaults to UGX.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	if currency == "" {
		currency = UGX
	}
	return Money{amount: amount, currency: currency}
}

// NewMoneyFromString parses a provider amount such as "50000" or "50000.00"
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency), nil
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsPositive returns true if the amount is strictly positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// String formats the amount with digit grouping, e.g. "UGX 50,000".
// Fractional digits are shown only when present.
func (m Money) String() string {
	p := message.NewPrinter(language.English)
	f, _ := m.amount.Float64()
	scale := 0
	if !m.amount.Equal(m.amount.Truncate(0)) {
		scale = 2
	}
	return p.Sprintf("%s %v", m.currency, number.Decimal(f, number.Scale(scale)))
}
