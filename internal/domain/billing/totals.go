// Package billing contiene los servicios de dominio puros de facturación:
// totales, ventanas de renovación y descripciones de líneas. Sin I/O.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/money"
)

// LineInput cantidad y precio unitario de una línea.
type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Totals resultado del cálculo: total por línea (ya redondeado), subtotal, impuesto y total.
type Totals struct {
	Lines    []decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CalculateTotals redondea cada línea a 2 decimales antes de sumar (no después),
// aplica el GST sobre el subtotal y devuelve total = subtotal + impuesto.
// Sin líneas devuelve 0.00 en los tres importes.
func CalculateTotals(lines []LineInput, taxRate decimal.Decimal) Totals {
	out := Totals{
		Lines:    make([]decimal.Decimal, len(lines)),
		Subtotal: money.Zero(),
	}
	for i, l := range lines {
		lt := money.LineTotal(l.Quantity, l.UnitPrice)
		out.Lines[i] = lt
		out.Subtotal = out.Subtotal.Add(lt)
	}
	out.Subtotal = money.Round(out.Subtotal)
	out.Tax = money.TaxAt(out.Subtotal, taxRate)
	out.Total = money.Round(out.Subtotal.Add(out.Tax))
	return out
}

// Recompute recalcula el total de cada línea y los totales de la factura a partir
// de sus líneas actuales. Es idempotente: dos llamadas seguidas dejan los mismos importes.
func Recompute(inv *entity.Invoice, items []*entity.InvoiceItem, taxRate decimal.Decimal) {
	lines := make([]LineInput, len(items))
	for i, it := range items {
		lines[i] = LineInput{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	t := CalculateTotals(lines, taxRate)
	for i, it := range items {
		it.Total = t.Lines[i]
	}
	inv.Subtotal = t.Subtotal
	inv.Tax = t.Tax
	inv.Total = t.Total
}

// ZeroTotals usado al anular: la factura conserva sus líneas pero sus importes quedan en 0.00.
func ZeroTotals(inv *entity.Invoice) {
	inv.Subtotal = money.Zero()
	inv.Tax = money.Zero()
	inv.Total = money.Zero()
}
