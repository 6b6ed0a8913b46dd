package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_Scale(t *testing.T) {
	t.Run("constructor rounds half up to two places", func(t *testing.T) {
		m := NewMoney(decimal.RequireFromString("10.005"))
		assert.Equal(t, "10.01", m.String())
	})

	t.Run("string always carries two fraction digits", func(t *testing.T) {
		m := NewMoney(decimal.NewFromInt(1000))
		assert.Equal(t, "1000.00", m.String())
	})

	t.Run("arithmetic stays at scale two", func(t *testing.T) {
		a, err := ParseMoney("1000.50")
		assert.NoError(t, err)
		b, err := ParseMoney("500.50")
		assert.NoError(t, err)

		assert.Equal(t, "500.00", a.Subtract(b).String())
		assert.Equal(t, "1501.00", a.Add(b).String())
	})
}

func TestParseMoney(t *testing.T) {
	t.Run("rejects more than two decimal places", func(t *testing.T) {
		_, err := ParseMoney("10.999")
		assert.Error(t, err)
	})

	t.Run("accepts trailing zeros beyond scale two", func(t *testing.T) {
		m, err := ParseMoney("1.100")
		assert.NoError(t, err)
		assert.Equal(t, "1.10", m.String())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseMoney("abc")
		assert.Error(t, err)
	})
}

func TestMoney_JSON(t *testing.T) {
	m, err := ParseMoney("1000.50")
	assert.NoError(t, err)

	data, err := json.Marshal(m)
	assert.NoError(t, err)
	assert.Equal(t, `"1000.50"`, string(data))

	var parsed Money
	assert.NoError(t, json.Unmarshal([]byte(`"42.10"`), &parsed))
	assert.Equal(t, "42.10", parsed.String())

	assert.Error(t, json.Unmarshal([]byte(`"1.999"`), &parsed))
}

func TestMoney_Scan(t *testing.T) {
	var m Money

	assert.NoError(t, m.Scan([]byte("99.90")))
	assert.Equal(t, "99.90", m.String())

	assert.NoError(t, m.Scan("12.00"))
	assert.Equal(t, "12.00", m.String())

	assert.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(true))
}

func TestMoney_Comparisons(t *testing.T) {
	small, _ := ParseMoney("1000.50")
	big, _ := ParseMoney("1000.51")

	assert.True(t, small.IsLessThan(big))
	assert.True(t, big.IsGreaterThan(small))
	assert.False(t, small.Equal(big))
	assert.True(t, small.IsPositive())
	assert.False(t, small.IsNegative())
}
