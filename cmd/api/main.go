package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/msp-api/docs"
	"github.com/jhoicas/msp-api/internal/application/billing"
	"github.com/jhoicas/msp-api/internal/application/notification"
	"github.com/jhoicas/msp-api/internal/application/ports"
	"github.com/jhoicas/msp-api/internal/application/renewal"
	"github.com/jhoicas/msp-api/internal/infrastructure/email"
	"github.com/jhoicas/msp-api/internal/infrastructure/metrics"
	"github.com/jhoicas/msp-api/internal/infrastructure/postgres"
	"github.com/jhoicas/msp-api/internal/infrastructure/queue"
	httpRouter "github.com/jhoicas/msp-api/internal/interfaces/http"
	"github.com/jhoicas/msp-api/pkg/config"
	"github.com/jhoicas/msp-api/pkg/logger"
)

// @title                      MSP Billing API
// @version                    1.0
// @description                Facturación de tickets y renovaciones de activos.
// @BasePath                   /
// @securityDefinitions.apikey Bearer
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DB.ConnectionString()); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	billingMetrics := metrics.NewBillingMetrics(nil)
	zl := log.Zerolog()

	repos := postgres.NewRepos(pool)
	txRunner := postgres.NewTxRunner(pool)
	billingSvc := billing.NewService(txRunner, repos, billing.Config{
		TaxRate:           cfg.Billing.TaxRate,
		TicketDueDays:     cfg.Billing.TicketDueDays,
		RenewalWindowDays: cfg.Billing.RenewalWindowDays,
		DedupWindowDays:   cfg.Billing.DedupWindowDays,
	}, billingMetrics, zl)

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
	} else {
		log.Warn().Msg("SMTP_HOST vacío: correos a clientes deshabilitados")
	}
	dispatcher := notification.NewDispatcher(
		postgres.NewUserRepository(pool), postgres.NewNotificationRepository(pool),
		mailer, billingMetrics, zl,
	)

	engine := renewal.NewEngine(billingSvc, repos.Assets, repos.Accounts, repos.Products, dispatcher, billingMetrics, renewal.Config{
		RenewalWindowDays:    cfg.Billing.RenewalWindowDays,
		EscalationWindowDays: cfg.Billing.EscalationWindowDays,
		ExpiringWindowDays:   cfg.Billing.ExpiringWindowDays,
		BaseURL:              cfg.App.BaseURL,
	}, zl)

	tasks := queue.New(queue.Config{
		Workers:     cfg.Queue.Workers,
		Buffer:      cfg.Queue.Buffer,
		MaxAttempts: cfg.Queue.MaxAttempts,
	}, billingMetrics, zl)
	tasks.Start()

	assetSvc := renewal.NewAssetService(txRunner, repos.Assets, engine, tasks, zl)

	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.Renewal.SchedulerEnabled {
		go runDailyRenewals(schedCtx, engine, cfg.Renewal.RunHour, zl)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // POST /api/renewals/run recorre todos los activos
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "MSP Billing API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Billing:   billingSvc,
		Assets:    assetSvc,
		Engine:    engine,
		Metrics:   billingMetrics,
		JWTSecret: cfg.JWT.Secret,
		Log:       zl,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de la cola de tareas")
	}

	log.Info().Msg("aplicación detenida")
}
