package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("defaults to UGX", func(t *testing.T) {
		m := NewMoney(decimal.NewFromInt(100), "")
		assert.Equal(t, UGX, m.Currency())
		assert.True(t, m.IsPositive())
	})

	t.Run("parses provider amount strings", func(t *testing.T) {
		m, err := NewMoneyFromString("50000", UGX)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(50000)))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NewMoneyFromString("fifty", UGX)
		assert.Error(t, err)
	})
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"whole shillings", "50000", "UGX 50,000"},
		{"large amount", "1250000", "UGX 1,250,000"},
		{"fractional", "1500.5", "UGX 1,500.50"},
		{"zero", "0", "UGX 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.amount, UGX)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}
