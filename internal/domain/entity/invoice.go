package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la factura.
const (
	InvoiceStatusDraft = "draft" // Recién generada, editable
	InvoiceStatusSent  = "sent"  // Entregada al cliente
	InvoiceStatusPaid  = "paid"  // Pago registrado, inmutable
	InvoiceStatusVoid  = "void"  // Anulada: totales en cero, fuentes liberadas
)

// Condiciones de pago usadas por los generadores automáticos.
const (
	PaymentTermsNet14        = "Net 14"
	PaymentTermsDueOnReceipt = "Due on Receipt"
)

// Invoice representa la cabecera de una factura.
// Invariante tras cualquier recálculo: Total == Subtotal + Tax y Tax == round(Subtotal * GST, 2).
type Invoice struct {
	ID            string
	AccountID     string
	Status        string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	DueDate       time.Time
	GeneratedAt   time.Time
	PaymentTerms  string
	PaidAt        *time.Time
	PaymentMethod string
	DocumentPath  string // Ruta del documento renderizado (opcional)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanSend draft -> sent.
func (i *Invoice) CanSend() bool { return i.Status == InvoiceStatusDraft }

// CanPay sent -> paid.
func (i *Invoice) CanPay() bool { return i.Status == InvoiceStatusSent }

// CanVoid cualquier estado no pagado (y no anulado) puede anularse.
func (i *Invoice) CanVoid() bool {
	return i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusSent
}

// CanDelete solo se borran borradores.
func (i *Invoice) CanDelete() bool { return i.Status == InvoiceStatusDraft }

// IsEditable las líneas se pueden modificar mientras la factura no esté pagada ni anulada.
func (i *Invoice) IsEditable() bool {
	return i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusSent
}
