package dto

// UpdateAssetRequest body para PATCH /api/assets/:id. Solo se aplican los campos presentes.
// ExpiresAt formato YYYY-MM-DD; cadena vacía quita el vencimiento.
type UpdateAssetRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	AssetType   *string `json:"asset_type,omitempty" validate:"omitempty,max=64"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=draft active expiring expired decommissioned retired"`
	ExpiresAt   *string `json:"expires_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ProductID   *string `json:"product_id,omitempty"`
	AutoInvoice *bool   `json:"auto_invoice,omitempty"`
}

// AssetResponse activo en respuestas.
type AssetResponse struct {
	ID                      string `json:"id"`
	AccountID               string `json:"account_id"`
	Name                    string `json:"name"`
	AssetType               string `json:"asset_type,omitempty"`
	Status                  string `json:"status"`
	ExpiresAt               string `json:"expires_at,omitempty"`
	ProductID               string `json:"product_id,omitempty"`
	AutoInvoice             bool   `json:"auto_invoice"`
	PendingRenewalInvoiceID string `json:"pending_renewal_invoice_id,omitempty"`
}

// AssetInvoiceResponse resultado de POST /api/assets/:id/renewal-invoice.
type AssetInvoiceResponse struct {
	Outcome   string `json:"outcome"` // created|skipped
	InvoiceID string `json:"invoice_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RenewalRunResponse resumen de una ejecución del motor de renovaciones.
type RenewalRunResponse struct {
	Scanned    int      `json:"scanned"`
	Invoiced   int      `json:"invoiced"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Escalated  int      `json:"escalated"`
	InvoiceIDs []string `json:"invoice_ids"`
}

// StatusRefreshResponse resumen del escaneo de estados de activos.
type StatusRefreshResponse struct {
	Expired  int `json:"expired"`
	Expiring int `json:"expiring"`
}
