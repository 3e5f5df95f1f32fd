package billing

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/msp-api/internal/application/ports"
	dombilling "github.com/jhoicas/msp-api/internal/domain/billing"
	"github.com/jhoicas/msp-api/internal/domain/money"
)

// Config parámetros de facturación.
type Config struct {
	TaxRate           decimal.Decimal
	TicketDueDays     int // vencimiento de facturas de ticket (generación + N días)
	RenewalWindowDays int // expires_at <= hoy + N -> renovación por facturar
	DedupWindowDays   int // factura de renovación en los últimos N días -> se omite
}

// DefaultConfig GST 10 %, 14 / 30 / 45 días.
func DefaultConfig() Config {
	return Config{
		TaxRate:           money.GSTRate,
		TicketDueDays:     dombilling.DefaultTicketDueDays,
		RenewalWindowDays: dombilling.DefaultRenewalWindowDays,
		DedupWindowDays:   dombilling.DefaultDedupWindowDays,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TaxRate.IsZero() {
		c.TaxRate = def.TaxRate
	}
	if c.TicketDueDays <= 0 {
		c.TicketDueDays = def.TicketDueDays
	}
	if c.RenewalWindowDays <= 0 {
		c.RenewalWindowDays = def.RenewalWindowDays
	}
	if c.DedupWindowDays <= 0 {
		c.DedupWindowDays = def.DedupWindowDays
	}
	return c
}

// Service servicio de facturación. Se instancia una vez al arrancar y se inyecta
// en handlers, motor de renovaciones y tareas en segundo plano.
type Service struct {
	txRunner BillingTxRunner
	repos    Repos
	cfg      Config
	metrics  ports.BillingMetrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewService construye el servicio. repos se usa para lecturas fuera de transacción.
func NewService(txRunner BillingTxRunner, repos Repos, cfg Config, metrics ports.BillingMetrics, log zerolog.Logger) *Service {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		txRunner: txRunner,
		repos:    repos,
		cfg:      cfg.withDefaults(),
		metrics:  metrics,
		log:      log.With().Str("component", "billing").Logger(),
		now:      time.Now,
	}
}

// SetClock reemplaza el reloj (tests y ejecuciones con fecha fija).
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Config devuelve la configuración efectiva.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) today() time.Time { return dombilling.DateOnly(s.now()) }
