package dto

import "github.com/shopspring/decimal"

// CreateInvoiceRequest body para POST /api/invoices (factura manual).
// DueDate formato YYYY-MM-DD; si va vacío se usa hoy + días por defecto.
type CreateInvoiceRequest struct {
	AccountID    string               `json:"account_id" validate:"required"`
	DueDate      string               `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentTerms string               `json:"payment_terms,omitempty" validate:"max=64"`
	Items        []InvoiceItemRequest `json:"items" validate:"dive"`
}

// InvoiceItemRequest línea manual (descripción, cantidad, precio unitario).
type InvoiceItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// RecordPaymentRequest body para POST /api/invoices/:id/pay.
// PaidAt formato RFC3339; si va vacío se usa la hora actual.
type RecordPaymentRequest struct {
	Method string `json:"method" validate:"required,max=64"`
	PaidAt string `json:"paid_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// InvoiceResponse factura con líneas para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID            string                `json:"id"`
	AccountID     string                `json:"account_id"`
	AccountName   string                `json:"account_name,omitempty"`
	Status        string                `json:"status"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	Tax           decimal.Decimal       `json:"tax"`
	Total         decimal.Decimal       `json:"total"`
	DueDate       string                `json:"due_date"`
	GeneratedAt   string                `json:"generated_at"`
	PaymentTerms  string                `json:"payment_terms,omitempty"`
	PaidAt        string                `json:"paid_at,omitempty"`
	PaymentMethod string                `json:"payment_method,omitempty"`
	Items         []InvoiceItemResponse `json:"items"`
}

// InvoiceItemResponse línea de factura en la respuesta.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	SourceType  string          `json:"source_type,omitempty"`
	SourceID    string          `json:"source_id,omitempty"`
}

// UnbilledResponse horas y materiales pendientes de facturar de un ticket.
type UnbilledResponse struct {
	TicketID    string              `json:"ticket_id"`
	TimeEntries []UnbilledTimeEntry `json:"time_entries"`
	Materials   []UnbilledMaterial  `json:"materials"`
}

// UnbilledTimeEntry entrada de horas sin factura.
type UnbilledTimeEntry struct {
	ID              string `json:"id"`
	TechnicianName  string `json:"technician_name"`
	DurationMinutes int    `json:"duration_minutes"`
	Note            string `json:"note,omitempty"`
}

// UnbilledMaterial consumo de material sin factura.
type UnbilledMaterial struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note,omitempty"`
}
