package billing

import (
	"context"

	"github.com/jhoicas/msp-api/internal/domain/repository"
)

// Repos repositorios de facturación atados a una misma conexión o transacción.
type Repos struct {
	Invoices  repository.InvoiceRepository
	Billables repository.BillableRepository
	Assets    repository.AssetRepository
	Products  repository.ProductRepository
	Accounts  repository.AccountRepository
	Tickets   repository.TicketRepository
}

// BillingTxRunner ejecuta fn dentro de una transacción con repos atados a ella.
// Si fn retorna error se hace rollback y ningún cambio (factura, líneas, bloqueos) persiste.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(r Repos) error) error
}
