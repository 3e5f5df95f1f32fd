// Command renewal ejecución única del motor de renovaciones para cron:
// escaneo de estados, generación y escalamiento; luego termina.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/notification"
	"github.com/jhoicas/msp-api/internal/application/ports"
	"github.com/jhoicas/msp-api/internal/application/renewal"
	"github.com/jhoicas/msp-api/internal/infrastructure/email"
	"github.com/jhoicas/msp-api/internal/infrastructure/postgres"
	"github.com/jhoicas/msp-api/pkg/config"
	"github.com/jhoicas/msp-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "msp-renewal"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	zl := log.Zerolog()
	repos := postgres.NewRepos(pool)
	billingSvc := billing.NewService(postgres.NewTxRunner(pool), repos, billing.Config{
		TaxRate:           cfg.Billing.TaxRate,
		TicketDueDays:     cfg.Billing.TicketDueDays,
		RenewalWindowDays: cfg.Billing.RenewalWindowDays,
		DedupWindowDays:   cfg.Billing.DedupWindowDays,
	}, nil, zl)

	var mailer ports.EmailSender
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, zl)
	}
	dispatcher := notification.NewDispatcher(
		postgres.NewUserRepository(pool), postgres.NewNotificationRepository(pool), mailer, nil, zl,
	)
	engine := renewal.NewEngine(billingSvc, repos.Assets, repos.Accounts, repos.Products, dispatcher, nil, renewal.Config{
		RenewalWindowDays:    cfg.Billing.RenewalWindowDays,
		EscalationWindowDays: cfg.Billing.EscalationWindowDays,
		ExpiringWindowDays:   cfg.Billing.ExpiringWindowDays,
		BaseURL:              cfg.App.BaseURL,
	}, zl)

	statuses, err := engine.RefreshStatuses(ctx)
	if err != nil {
		log.Error().Err(err).Msg("escaneo de estados")
	}
	report, err := engine.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("ejecución de renovaciones")
		stop()
		pool.Close()
		os.Exit(1)
	}
	log.Info().
		Int("expired", statuses.Expired).
		Int("expiring", statuses.Expiring).
		Int("invoiced", report.Invoiced).
		Int("failed", report.Failed).
		Int("escalated", report.Escalated).
		Msg("renovaciones completadas")
}
