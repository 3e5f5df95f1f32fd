package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/msp-api/internal/domain/money"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTax_RedondeoHalfUp(t *testing.T) {
	cases := []struct {
		subtotal string
		want     string
	}{
		{"10.555", "1.06"}, // 1.0555 -> empate hacia arriba
		{"100", "10.00"},
		{"474.99", "47.50"},
		{"0", "0.00"},
		{"0.05", "0.01"},  // 0.005 -> 0.01
		{"0.04", "0.00"},  // 0.004 -> 0.00
		{"19.95", "2.00"}, // 1.995 -> 2.00
	}
	for _, tc := range cases {
		t.Run(tc.subtotal, func(t *testing.T) {
			got := money.Tax(d(tc.subtotal))
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestLineTotal_RedondeaCadaLinea(t *testing.T) {
	assert.Equal(t, "375.00", money.Fixed(money.LineTotal(d("2.5"), d("150"))))
	assert.Equal(t, "99.99", money.Fixed(money.LineTotal(d("1"), d("99.99"))))
	// 0.333 * 0.015 = 0.004995 -> 0.00
	assert.Equal(t, "0.00", money.Fixed(money.LineTotal(d("0.333"), d("0.015"))))
	// 3 * 0.335 = 1.005 -> 1.01
	assert.Equal(t, "1.01", money.Fixed(money.LineTotal(d("3"), d("0.335"))))
}

func TestTaxAt_TasaExplicita(t *testing.T) {
	got := money.TaxAt(d("200"), d("0.15"))
	assert.True(t, got.Equal(d("30.00")))
}

func TestZero(t *testing.T) {
	assert.Equal(t, "0.00", money.Fixed(money.Zero()))
	assert.True(t, money.Zero().IsZero())
}
