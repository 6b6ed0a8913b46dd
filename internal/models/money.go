package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable monetary value held at exactly two decimal places.
// Every constructor and arithmetic operation returns a fresh value rounded
// half-up to scale 2; no caller can observe an intermediate at another scale.
type Money struct {
	amount decimal.Decimal
}

// NewMoney builds a Money from an arbitrary decimal, rounding half-up to
// two decimal places.
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d.Round(2)}
}

// ZeroMoney returns the zero value at scale 2.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// ParseMoney parses a decimal string into a Money. Inputs with more than two
// fraction digits are rejected rather than silently rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q", s)
	}
	if !d.Equal(d.Round(2)) {
		return Money{}, fmt.Errorf("amount %q has more than 2 decimal places", s)
	}
	return NewMoney(d), nil
}

func (m Money) Add(other Money) Money {
	return NewMoney(m.amount.Add(other.amount))
}

func (m Money) Subtract(other Money) Money {
	return NewMoney(m.amount.Sub(other.amount))
}

func (m Money) IsLessThan(other Money) bool {
	return m.amount.Cmp(other.amount) < 0
}

func (m Money) IsGreaterThan(other Money) bool {
	return m.amount.Cmp(other.amount) > 0
}

func (m Money) Equal(other Money) bool {
	return m.amount.Cmp(other.amount) == 0
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// String renders the amount with exactly two fraction digits, e.g. "1000.50".
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON renders Money as a decimal string to keep the 2-decimal
// contract across the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so Money maps onto a NUMERIC column.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value any) error {
	if value == nil {
		*m = ZeroMoney()
		return nil
	}

	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	case float64:
		*m = NewMoney(decimal.NewFromFloat(v))
		return nil
	case int64:
		*m = NewMoney(decimal.NewFromInt(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Money: %w", s, err)
	}
	*m = NewMoney(d)
	return nil
}
