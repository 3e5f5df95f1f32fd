// Package money concentra la política monetaria: todo importe es un decimal
// de precisión arbitraria y se redondea a 2 decimales con half-up.
// Nunca se usa float64 para dinero.
package money

import "github.com/shopspring/decimal"

// Places cantidad de decimales de cualquier importe persistido.
const Places int32 = 2

// GSTRate tasa fija del Goods and Services Tax (10 %).
var GSTRate = decimal.RequireFromString("0.10")

// Round redondea a 2 decimales. decimal.Round aplica half away from zero,
// que para importes no negativos coincide con half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Zero devuelve 0.00 con la escala monetaria.
func Zero() decimal.Decimal {
	return Round(decimal.Zero)
}

// LineTotal total de una línea: round(quantity * unitPrice, 2).
// Cada línea se redondea individualmente antes de sumarse.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(quantity.Mul(unitPrice))
}

// Tax GST sobre un subtotal: round(subtotal * 0.10, 2).
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return TaxAt(subtotal, GSTRate)
}

// TaxAt igual que Tax pero con una tasa explícita (configurable).
func TaxAt(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(rate))
}

// Fixed formatea un importe con exactamente 2 decimales ("522.49").
func Fixed(d decimal.Decimal) string {
	return Round(d).StringFixed(Places)
}
