package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeEntry registro de horas de un técnico sobre un ticket.
//
// InvoiceID es un bloqueo pesimista con dos estados:
//   - nil: sin facturar, aparece en las consultas de pendientes del ticket.
//   - != nil: bloqueado por esa factura; se libera al borrar la línea o anular la factura.
type TimeEntry struct {
	ID              string
	TicketID        string
	TechnicianName  string
	ProductID       string // tarifa horaria (opcional)
	DurationMinutes int
	Note            string
	InvoiceID       *string
	CreatedAt       time.Time
}

// Locked indica si la entrada ya está asociada a una factura.
func (t *TimeEntry) Locked() bool { return t.InvoiceID != nil }

// BillableHours horas decimales facturables (minutos / 60).
func (t *TimeEntry) BillableHours() decimal.Decimal {
	if t.DurationMinutes <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(t.DurationMinutes)).Div(decimal.NewFromInt(60))
}

// MaterialUsage consumo de material sobre un ticket. Mismo esquema de bloqueo que TimeEntry.
type MaterialUsage struct {
	ID        string
	TicketID  string
	ProductID string
	Quantity  decimal.Decimal
	Note      string
	InvoiceID *string
	CreatedAt time.Time
}

// Locked indica si el consumo ya está asociado a una factura.
func (m *MaterialUsage) Locked() bool { return m.InvoiceID != nil }

// Ticket solicitud de soporte de una cuenta.
type Ticket struct {
	ID        string
	AccountID string
	Number    int
	Subject   string
	CreatedAt time.Time
}
