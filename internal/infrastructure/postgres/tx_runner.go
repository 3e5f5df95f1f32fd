package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/msp-api/internal/application/billing"
)

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunBilling inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos billing.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos repositorios de facturación sobre q (pool para lecturas sueltas, tx dentro de RunBilling).
func NewRepos(q Querier) billing.Repos {
	return billing.Repos{
		Invoices:  NewInvoiceRepository(q),
		Billables: NewBillableRepository(q),
		Assets:    NewAssetRepository(q),
		Products:  NewProductRepository(q),
		Accounts:  NewAccountRepository(q),
		Tickets:   NewTicketRepository(q),
	}
}
