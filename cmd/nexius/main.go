package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/controllers"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/cache"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/database"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/jobqueue"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/mail"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/notifications"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/odoo"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/router"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/s3backup"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	application, err := NewApplication()
	if err != nil {
		log.Fatalf("[Main] Startup failed: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000"))
	go func() {
		if err := application.App.Listen(addr); err != nil {
			log.Fatalf("[Main] Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Main] Shutting down")
	application.Shutdown()
}

// Application is the wired server and the background workers it owns.
type Application struct {
	App *fiber.App

	store    *database.Store
	manager  *jobqueue.Manager
	queue    *jobqueue.Queue
	odoo     *odoo.Dispatcher
	closeFns []func() error
}

func NewApplication() (*Application, error) {
	env.SetupEnvFile()

	store, err := database.Open(database.LoadConfig())
	if err != nil {
		return nil, err
	}
	a := &Application{store: store}
	a.closeFns = append(a.closeFns, store.Close)

	// Redis is optional: without it payment codes are resolved from the
	// database, rate limits are per process and reminders are sent inline.
	cacheCfg := cache.LoadConfig()
	redisClient, err := cache.New(cacheCfg)
	var limiterStorage fiber.Storage
	if err != nil {
		log.Warnf("[Main] Cache unavailable, continuing without it: %v", err)
		_ = redisClient.Close()
		redisClient = nil
	} else {
		limiterStorage = cache.NewLimiterStorage(cacheCfg)
		a.closeFns = append(a.closeFns, redisClient.Close)
	}

	repos := repository.NewFactory(store.DB).GetRepositories()

	licCfg, err := licensing.LoadConfig()
	if err != nil {
		return nil, err
	}
	licOpts := []licensing.Option{}
	if redisClient != nil {
		licOpts = append(licOpts, licensing.WithPaymentCodeIndex(cache.NewPaymentCodeStore(redisClient)))
	}

	odooCfg := odoo.LoadConfig()
	odooCfg.Location = licCfg.Location
	if odooCfg.Active() {
		a.odoo = odoo.NewDispatcher(odoo.NewClient(odooCfg), odooCfg)
		a.odoo.Start()
		licOpts = append(licOpts, licensing.WithSyncer(a.odoo))
	} else if odooCfg.Enabled {
		log.Warn("[Main] ODOO_SYNC_ENABLED is set but ODOO_BASE_URL is missing, accounting sync is off")
	}
	licenses := licensing.NewService(repos.License, repos.Transaction, licCfg, licOpts...)

	notifCfg := notifications.LoadConfig()
	notifOpts := []notifications.Option{}
	if notifCfg.WhatsAppURL != "" {
		notifOpts = append(notifOpts, notifications.WithSender(models.ChannelWhatsApp,
			notifications.NewWhatsAppSender(notifCfg.WhatsAppURL, notifCfg.WhatsAppToken, notifCfg.SendTimeout)))
	}
	if notifCfg.SMTP.Enabled() {
		notifOpts = append(notifOpts, notifications.WithSender(models.ChannelEmail,
			notifications.NewEmailSender(mail.NewSMTPMailer(notifCfg.SMTP))))
	}
	reminders := notifications.NewService(repos.NotificationJob, repos.NotificationLog, notifCfg, notifOpts...)

	if redisClient != nil {
		a.queue = jobqueue.NewQueue(redisClient, env.GetEnvInt("JOB_QUEUE_WORKERS", 3), reminders)
	}

	var archiver jobqueue.LedgerArchiver
	s3Cfg, err := s3backup.LoadConfig()
	if err != nil {
		return nil, err
	}
	if s3Cfg.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := s3backup.NewClient(ctx, s3Cfg)
		cancel()
		if err != nil {
			log.Errorf("[Main] Ledger archive disabled: %v", err)
		} else {
			archiver = s3backup.NewArchiver(client, s3Cfg)
		}
	}

	a.manager = jobqueue.NewManager(a.queue, licenses, reminders, archiver, jobqueue.ManagerConfig{
		SweepInterval:   notifCfg.SweepInterval,
		ArchiveInterval: s3Cfg.Interval,
		DueSoonDays:     notifCfg.DueSoonDays,
		Channel:         notifCfg.DefaultChannel,
	})
	a.manager.Start()

	app := fiber.New(fiber.Config{
		AppName:   "Nexius Billing",
		BodyLimit: 1 << 20,
	})
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app, router.Handlers{
		Licenses:        controllers.NewLicenseController(licenses, reminders, a.manager, notifCfg.DueSoonDays),
		Notifications:   controllers.NewNotificationController(reminders, a.manager),
		Transactions:    controllers.NewTransactionController(repos.Transaction, licenses),
		Admin:           controllers.NewAdminController(a.manager, a.odoo),
		APIKey:          security.NewKeyVerifier(env.GetEnv("ADMIN_API_KEY", "")),
		WebhookSecret:   env.GetEnv("TRANSACTIONS_WEBHOOK_SECRET", ""),
		LimiterStorage:  limiterStorage,
		RateLimit:       env.GetEnvInt("API_RATE_LIMIT", 0),
		MetricsUser:     env.GetEnv("METRICS_USER", ""),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),
		Health:          store.Ping,
	})

	a.App = app
	return a, nil
}

// Shutdown stops the server first, then the workers, then the connections.
func (a *Application) Shutdown() {
	if err := a.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("[Main] HTTP shutdown: %v", err)
	}
	a.manager.Stop()
	if a.odoo != nil {
		a.odoo.Stop()
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil {
			log.Warnf("[Main] Close: %v", err)
		}
	}
}
