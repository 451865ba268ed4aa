package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(Product{Name: "Wallet", Price: MustMoney("45")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"price":"45.00"`)

	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Hat","price":"12.5"}`), &p))
	assert.Equal(t, "12.50", p.Price.StringFixed(2))

	require.NoError(t, json.Unmarshal([]byte(`{"price":7.25}`), &p))
	assert.Equal(t, "7.25", p.Price.StringFixed(2))
}

func TestMoney_Cents(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{amount: "24.99", want: 2499},
		{amount: "45", want: 4500},
		{amount: "0.005", want: 1},
		{amount: "19.994", want: 1999},
		{amount: "1234.56", want: 123456},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, MustMoney(tt.amount).Cents())
		})
	}
}

func TestPaymentStatus_Valid(t *testing.T) {
	assert.True(t, PaymentPaid.Valid())
	assert.True(t, PaymentCancelled.Valid())
	assert.False(t, PaymentStatus("refunded").Valid())
}

func TestProductUpdate_Empty(t *testing.T) {
	assert.True(t, ProductUpdate{}.Empty())
	name := "Hat"
	assert.False(t, ProductUpdate{Name: &name}.Empty())
}
