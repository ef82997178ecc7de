// Package money provides the fixed-scale decimal amount type used for every
// balance and transaction amount in the ledger. Amounts always carry exactly
// two decimal places and are never represented as binary floating point.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every amount is held at.
const Scale = 2

// ErrInvalidAmount is returned when an amount cannot be parsed or carries
// more than Scale decimal places.
var ErrInvalidAmount = errors.New("invalid monetary amount")

// Money is an exact decimal amount with a fixed scale of two.
// The zero value is 0.00 and ready to use.
type Money struct {
	d decimal.Decimal
}

// Zero is the 0.00 amount.
var Zero = Money{}

// New builds an amount from whole units and minor units (cents).
// New(12, 34) is 12.34.
func New(units int64, cents int64) Money {
	total := decimal.New(units, 0).Mul(decimal.New(100, 0)).Add(decimal.New(cents, 0))
	return Money{d: total.Shift(-Scale)}
}

// FromString parses a decimal string such as "1234.56". It rejects malformed
// input and input with more than two decimal places with ErrInvalidAmount.
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -Scale {
		return Money{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, Scale)
	}
	return Money{d: d}, nil
}

func (m Money) Add(other Money) Money     { return Money{d: m.d.Add(other.d)} }
func (m Money) Sub(other Money) Money     { return Money{d: m.d.Sub(other.d)} }
func (m Money) Neg() Money                { return Money{d: m.d.Neg()} }
func (m Money) Cmp(other Money) int       { return m.d.Cmp(other.d) }
func (m Money) Equal(other Money) bool    { return m.d.Cmp(other.d) == 0 }
func (m Money) LessThan(other Money) bool { return m.d.Cmp(other.d) < 0 }
func (m Money) IsZero() bool              { return m.d.IsZero() }
func (m Money) IsPositive() bool          { return m.d.IsPositive() }
func (m Money) IsNegative() bool          { return m.d.IsNegative() }

// String renders the amount with exactly two decimal places, e.g. "1500.00".
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON renders the amount as a JSON string to avoid any float round-trip.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so amounts bind to NUMERIC(15,2) columns.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for NUMERIC(15,2) columns.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Zero
		return nil
	}
	switch v := value.(type) {
	case []byte:
		parsed, err := FromString(string(v))
		if err != nil {
			return err
		}
		*m = parsed
	case string:
		parsed, err := FromString(v)
		if err != nil {
			return err
		}
		*m = parsed
	case int64:
		*m = Money{d: decimal.New(v, 0)}
	default:
		return fmt.Errorf("%w: cannot scan %T into money.Money", ErrInvalidAmount, value)
	}
	return nil
}
