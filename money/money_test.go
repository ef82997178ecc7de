package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString(t *testing.T) {
	t.Run("valid amounts", func(t *testing.T) {
		cases := map[string]string{
			"1234.56": "1234.56",
			"0":       "0.00",
			"10.5":    "10.50",
			"-30":     "-30.00",
		}
		for input, want := range cases {
			m, err := FromString(input)
			assert.NoError(t, err, input)
			assert.Equal(t, want, m.String())
		}
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, input := range []string{"", "abc", "12.3.4", "1,000.00"} {
			_, err := FromString(input)
			assert.ErrorIs(t, err, ErrInvalidAmount, input)
		}
	})

	t.Run("too many decimal places", func(t *testing.T) {
		_, err := FromString("10.555")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestArithmetic(t *testing.T) {
	a := New(100, 25) // 100.25
	b := New(0, 75)   // 0.75

	assert.Equal(t, "101.00", a.Add(b).String())
	assert.Equal(t, "99.50", a.Sub(b).String())
	assert.Equal(t, "-100.25", a.Neg().String())

	assert.True(t, b.LessThan(a))
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
	assert.True(t, Zero.IsZero())
	assert.Equal(t, 0, a.Cmp(New(100, 25)))
}

// Exactness: 0.10 added ten times must be exactly 1.00, which float64 gets wrong.
func TestNoFloatDrift(t *testing.T) {
	tenth := New(0, 10)
	sum := Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(tenth)
	}
	assert.True(t, sum.Equal(New(1, 0)))
}

func TestJSONRoundTrip(t *testing.T) {
	m := New(1500, 0)
	data, err := json.Marshal(m)
	assert.NoError(t, err)
	assert.Equal(t, `"1500.00"`, string(data))

	var back Money
	assert.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, m.Equal(back))
}

func TestScan(t *testing.T) {
	var m Money
	assert.NoError(t, m.Scan([]byte("42.10")))
	assert.Equal(t, "42.10", m.String())

	assert.NoError(t, m.Scan("0.99"))
	assert.Equal(t, "0.99", m.String())

	assert.Error(t, m.Scan(3.14))
}
