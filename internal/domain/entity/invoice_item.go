package entity

import "github.com/shopspring/decimal"

// Tipos de registro origen de una línea de factura.
const (
	SourceTypeTime         = "time"
	SourceTypeMaterial     = "material"
	SourceTypeAssetRenewal = "asset_renewal"
)

// SourceRef referencia opcional al registro facturable que originó la línea.
type SourceRef struct {
	Type string
	ID   string
}

// LocksRecord indica si la referencia apunta a un registro con bloqueo invoice_id
// (horas y materiales). Las renovaciones de activos usan su propio bloqueo.
func (s *SourceRef) LocksRecord() bool {
	return s != nil && (s.Type == SourceTypeTime || s.Type == SourceTypeMaterial)
}

// InvoiceItem línea de factura. Total == round(Quantity * UnitPrice, 2).
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Source      *SourceRef // nil para líneas manuales
}
