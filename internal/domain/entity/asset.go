package entity

import "time"

// Estados del ciclo de vida de un activo.
const (
	AssetStatusDraft          = "draft"
	AssetStatusActive         = "active"
	AssetStatusExpiring       = "expiring"
	AssetStatusExpired        = "expired"
	AssetStatusDecommissioned = "decommissioned"
	AssetStatusRetired        = "retired"
)

// Asset activo gestionado (licencia, dominio, garantía, contrato) de una cuenta.
//
// PendingRenewalInvoiceID es el bloqueo de idempotencia del motor de renovaciones:
//   - nil: armado, el próximo escaneo puede generar la factura de renovación.
//   - != nil: factura de renovación pendiente; se libera cuando ExpiresAt avanza
//     (la renovación se ejecutó) o cuando esa factura se anula/borra.
type Asset struct {
	ID                      string
	AccountID               string
	Name                    string
	AssetType               string
	Status                  string
	ExpiresAt               *time.Time
	ProductID               string // producto de facturación recurrente vinculado (opcional)
	AutoInvoice             bool
	PendingRenewalInvoiceID *string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// RenewalLocked indica si hay una factura de renovación pendiente.
func (a *Asset) RenewalLocked() bool { return a.PendingRenewalInvoiceID != nil }

// BillingConfigured auto_invoice activo y producto vinculado.
func (a *Asset) BillingConfigured() bool { return a.AutoInvoice && a.ProductID != "" }

// InService activos que siguen en servicio para el motor de renovaciones.
// "expiring" lo asigna el escaneo de estados y no saca al activo del ciclo de cobro.
func (a *Asset) InService() bool {
	return a.Status == AssetStatusActive || a.Status == AssetStatusExpiring
}

// Decommissioned activo dado de baja o retirado; ya no se factura.
func (a *Asset) Decommissioned() bool {
	return a.Status == AssetStatusDecommissioned || a.Status == AssetStatusRetired
}
