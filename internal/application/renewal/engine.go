// Package renewal contiene el motor de renovaciones de activos: generación de
// facturas de renovación, escalamiento de renovaciones impagas y el escaneo
// periódico de estados.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/application/notification"
	"github.com/jhoicas/msp-api/internal/application/ports"
	"github.com/jhoicas/msp-api/internal/domain"
	dombilling "github.com/jhoicas/msp-api/internal/domain/billing"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

// InvoiceGenerator parte del servicio de facturación que usa el motor.
type InvoiceGenerator interface {
	CheckAndInvoiceAsset(ctx context.Context, assetID string) (billing.AssetInvoiceResult, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
}

// Notifier despacho de notificaciones.
type Notifier interface {
	StaffRecipients(ctx context.Context) ([]notification.Recipient, error)
	Notify(ctx context.Context, recipients []notification.Recipient, msg notification.Message) int
}

// Config ventanas del motor (días) y URL base para los enlaces.
type Config struct {
	RenewalWindowDays    int
	EscalationWindowDays int
	ExpiringWindowDays   int
	BaseURL              string
}

func (c Config) withDefaults() Config {
	if c.RenewalWindowDays <= 0 {
		c.RenewalWindowDays = dombilling.DefaultRenewalWindowDays
	}
	if c.EscalationWindowDays <= 0 {
		c.EscalationWindowDays = dombilling.DefaultEscalationWindowDays
	}
	if c.ExpiringWindowDays <= 0 {
		c.ExpiringWindowDays = dombilling.DefaultExpiringWindowDays
	}
	return c
}

// RunReport resumen de una ejecución.
type RunReport struct {
	Scanned    int
	Invoiced   int
	Skipped    int
	Failed     int
	Escalated  int
	InvoiceIDs []string
}

// StatusReport resumen del escaneo de estados.
type StatusReport struct {
	Expired  int
	Expiring int
}

// Engine motor de renovaciones. Cada ejecución es síncrona y recorre los activos en orden.
type Engine struct {
	billing  InvoiceGenerator
	assets   repository.AssetRepository
	accounts repository.AccountRepository
	products repository.ProductRepository
	notifier Notifier
	metrics  ports.BillingMetrics
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewEngine construye el motor.
func NewEngine(
	gen InvoiceGenerator,
	assets repository.AssetRepository,
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	notifier Notifier,
	metrics ports.BillingMetrics,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Engine{
		billing:  gen,
		assets:   assets,
		accounts: accounts,
		products: products,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "renewal").Logger(),
		now:      time.Now,
	}
}

// SetClock reemplaza el reloj.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) today() time.Time { return dombilling.DateOnly(e.now()) }

// Run ejecuta el escaneo de generación y luego el de escalamiento.
// Un fallo en un activo se registra y no detiene el recorrido; solo los
// errores de consulta de cada pasada se devuelven.
func (e *Engine) Run(ctx context.Context) (RunReport, error) {
	var report RunReport
	started := e.now()
	errA := e.generationPass(ctx, &report)
	errB := e.escalationPass(ctx, &report)

	e.log.Info().
		Int("scanned", report.Scanned).
		Int("invoiced", report.Invoiced).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("escalated", report.Escalated).
		Dur("took", e.now().Sub(started)).
		Msg("ejecución de renovaciones finalizada")
	return report, errors.Join(errA, errB)
}

// generationPass activos en servicio con facturación configurada, vencimiento en
// [hoy, hoy+ventana] y sin bloqueo de renovación.
func (e *Engine) generationPass(ctx context.Context, report *RunReport) error {
	today := e.today()
	candidates, err := e.assets.ListRenewalCandidates(ctx, today, dombilling.AddDays(today, e.cfg.RenewalWindowDays))
	if err != nil {
		e.log.Error().Err(err).Msg("listar candidatos de renovación")
		return fmt.Errorf("list renewal candidates: %w", err)
	}
	for _, asset := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		res, err := e.processAsset(ctx, asset)
		switch {
		case err != nil:
			report.Failed++
			e.metrics.RenewalOutcome("failed")
			e.log.Error().Err(err).Str("asset_id", asset.ID).Str("outcome", "failed").Msg("renovación de activo")
		case res.Created():
			report.Invoiced++
			report.InvoiceIDs = append(report.InvoiceIDs, res.InvoiceID)
		default:
			report.Skipped++
			e.log.Debug().Str("asset_id", asset.ID).Str("outcome", res.Outcome).Str("reason", res.Reason).Msg("renovación de activo")
		}
	}
	return nil
}

// escalationPass aviso crítico al personal por cada renovación pendiente que
// vence en [hoy, hoy+EscalationWindowDays]. Nunca genera facturas.
func (e *Engine) escalationPass(ctx context.Context, report *RunReport) error {
	today := e.today()
	pending, err := e.assets.ListEscalations(ctx, today, dombilling.AddDays(today, e.cfg.EscalationWindowDays))
	if err != nil {
		e.log.Error().Err(err).Msg("listar escalamientos")
		return fmt.Errorf("list escalations: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	staff, err := e.notifier.StaffRecipients(ctx)
	if err != nil {
		return fmt.Errorf("staff recipients: %w", err)
	}
	for _, asset := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		days := dombilling.DaysUntil(*asset.ExpiresAt, today)
		invoiceID := *asset.PendingRenewalInvoiceID
		e.notifier.Notify(ctx, staff, notification.Message{
			Subject:  fmt.Sprintf("Renewal unpaid: %s expires in %d days", asset.Name, days),
			Body:     fmt.Sprintf("Renewal invoice %s for %s is still pending and the asset expires in %d days (%s).", invoiceID, asset.Name, days, asset.ExpiresAt.Format(dombilling.ExpiryLayout)),
			Link:     e.invoiceLink(invoiceID),
			Priority: entity.PriorityCritical,
		})
		report.Escalated++
		e.metrics.EscalationSent()
		e.log.Info().Str("asset_id", asset.ID).Str("invoice_id", invoiceID).Int("days_left", days).Msg("renovación escalada")
	}
	return nil
}

// InvoiceAsset ruta ad-hoc (tras modificar un activo o a pedido): mismo paso
// que el escaneo programado para un solo activo, respetando el bloqueo.
func (e *Engine) InvoiceAsset(ctx context.Context, assetID string) (billing.AssetInvoiceResult, error) {
	asset, err := e.assets.GetByID(ctx, assetID)
	if err != nil {
		return billing.AssetInvoiceResult{}, fmt.Errorf("get asset: %w", err)
	}
	if asset == nil {
		return billing.AssetInvoiceResult{}, domain.ErrNotFound
	}
	if asset.RenewalLocked() {
		return billing.AssetInvoiceResult{Outcome: billing.OutcomeSkipped, Reason: billing.ReasonAlreadyInvoiced}, nil
	}
	return e.processAsset(ctx, asset)
}

// processAsset genera la factura, fija el bloqueo de renovación (commit propio,
// así un fallo posterior no deshace esta renovación) y notifica.
func (e *Engine) processAsset(ctx context.Context, asset *entity.Asset) (billing.AssetInvoiceResult, error) {
	res, err := e.billing.CheckAndInvoiceAsset(ctx, asset.ID)
	if err != nil {
		return res, err
	}
	e.metrics.RenewalOutcome(res.Outcome)
	if !res.Created() {
		return res, nil
	}
	if err := e.assets.ArmRenewalLock(ctx, asset.ID, res.InvoiceID); err != nil {
		e.log.Warn().Err(err).
			Str("asset_id", asset.ID).
			Str("invoice_id", res.InvoiceID).
			Msg("no se pudo fijar el bloqueo de renovación")
	}
	e.log.Info().Str("asset_id", asset.ID).Str("invoice_id", res.InvoiceID).Str("outcome", res.Outcome).Msg("renovación de activo")
	e.notifyGenerated(ctx, asset, res.InvoiceID)
	return res, nil
}

// notifyGenerated aviso interno al personal y correo al cliente si tiene billing email.
// Los fallos de notificación se registran; la factura y el bloqueo ya están confirmados.
func (e *Engine) notifyGenerated(ctx context.Context, asset *entity.Asset, invoiceID string) {
	inv, err := e.billing.GetInvoice(ctx, invoiceID)
	if err != nil {
		e.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("leer factura para notificación")
		return
	}
	productName, frequency := "", ""
	if p, err := e.products.GetByID(ctx, asset.ProductID); err != nil {
		e.log.Warn().Err(err).Str("product_id", asset.ProductID).Msg("leer producto para notificación")
	} else if p != nil {
		productName, frequency = p.Name, p.BillingFrequency
	}
	expires := ""
	if asset.ExpiresAt != nil {
		expires = asset.ExpiresAt.Format(dombilling.ExpiryLayout)
	}
	link := e.invoiceLink(invoiceID)

	if staff, err := e.notifier.StaffRecipients(ctx); err != nil {
		e.log.Error().Err(err).Msg("destinatarios del personal")
	} else {
		e.notifier.Notify(ctx, staff, notification.Message{
			Subject:  fmt.Sprintf("Renewal invoice generated: %s", asset.Name),
			Body:     fmt.Sprintf("Renewal invoice for %s (expires %s) generated, total %s.", asset.Name, expires, inv.Total.StringFixed(2)),
			Link:     link,
			Priority: entity.PriorityNormal,
		})
	}

	acc, err := e.accounts.GetByID(ctx, asset.AccountID)
	if err != nil || acc == nil || acc.BillingEmail == "" {
		return
	}
	mail := notification.RenewalInvoiceEmail{
		AccountName: acc.Name,
		AssetName:   asset.Name,
		AssetType:   asset.AssetType,
		ProductName: productName,
		Frequency:   frequency,
		ExpiresAt:   expires,
		Total:       "$" + inv.Total.StringFixed(2),
		DueDate:     inv.DueDate,
		InvoiceURL:  link,
	}
	html, err := mail.Render()
	if err != nil {
		e.log.Error().Err(err).Str("asset_id", asset.ID).Msg("plantilla de correo de renovación")
		return
	}
	e.notifier.Notify(ctx, []notification.Recipient{{Type: notification.RecipientEmail, Email: acc.BillingEmail}}, notification.Message{
		Subject: mail.Subject(),
		HTML:    html,
		Link:    link,
	})
}

// RefreshStatuses escaneo periódico: vencidos -> expired, activos con
// vencimiento en [hoy, hoy+ExpiringWindowDays] -> expiring.
func (e *Engine) RefreshStatuses(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	today := e.today()
	assets, err := e.assets.ListWithExpiryBefore(ctx, dombilling.AddDays(today, e.cfg.ExpiringWindowDays))
	if err != nil {
		return report, fmt.Errorf("list assets by expiry: %w", err)
	}
	for _, a := range assets {
		next, changed := dombilling.NextAssetStatus(a, today, e.cfg.ExpiringWindowDays)
		if !changed {
			continue
		}
		if err := e.assets.UpdateStatus(ctx, a.ID, next); err != nil {
			e.log.Error().Err(err).Str("asset_id", a.ID).Str("status", next).Msg("actualizar estado de activo")
			continue
		}
		switch next {
		case entity.AssetStatusExpired:
			report.Expired++
		case entity.AssetStatusExpiring:
			report.Expiring++
		}
	}
	e.log.Info().Int("expired", report.Expired).Int("expiring", report.Expiring).Msg("estados de activos actualizados")
	return report, nil
}

func (e *Engine) invoiceLink(id string) string {
	return e.cfg.BaseURL + "/invoices/" + id
}
