package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/submgr/billing/internal/adapters/lognotifier"
	"github.com/submgr/billing/internal/adapters/redisrepo"
	"github.com/submgr/billing/internal/adapters/revolut"
	"github.com/submgr/billing/internal/adapters/zaplog"
	"github.com/submgr/billing/internal/config"
	"github.com/submgr/billing/internal/domain/ports"
	cronHandler "github.com/submgr/billing/internal/handlers/cron"
	billingService "github.com/submgr/billing/internal/services/billing"
	currencyService "github.com/submgr/billing/internal/services/currency"
	housekeepingService "github.com/submgr/billing/internal/services/housekeeping"
	reminderService "github.com/submgr/billing/internal/services/reminder"
	"github.com/submgr/billing/pkg/observability"
	"github.com/submgr/billing/pkg/shutdown"
	"github.com/submgr/billing/pkg/timeutil"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting billing service",
		ports.Int("port", cfg.Server.Port),
		ports.Int("metrics_port", cfg.Server.MetricsPort))

	ctx := context.Background()

	// Storage
	store, err := redisrepo.NewStore(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Error("redis connection failed", ports.Err(err))
		os.Exit(1)
	}

	subs := redisrepo.NewSubscriptionRepository(store)
	users := redisrepo.NewUserRepository(store)
	invoices := redisrepo.NewInvoiceRepository(store)
	invites := redisrepo.NewInviteRepository(store)
	rates := redisrepo.NewRateRepository(store)

	// Services
	converter := currencyService.NewConverter(rates, logger)
	engine := billingService.NewEngine(subs, users, converter, logger)
	scheduler := billingService.NewScheduler(engine, subs, users, invoices, logger)

	notifier := lognotifier.New(logger)
	reminders := reminderService.NewService(invoices, notifier, logger)

	rateSource := revolut.NewRateSource(cfg.Revolut.BaseURL,
		time.Duration(cfg.Revolut.Timeout)*time.Second, logger)
	refresher := currencyService.NewRefresher(rateSource, rates, cfg.Currencies, logger)

	housekeeper := housekeepingService.NewService(invoices, invites, logger)

	// Job surface: scheduled internally, triggerable over HTTP
	tracker := shutdown.NewJobTracker(logger)
	jobs := cronHandler.NewHandler(cfg.Cron.Secret, tracker, logger)
	jobs.RegisterJob("billing", scheduler.RunOnce)
	jobs.RegisterJob("reminders", reminders.RunOnce)
	jobs.RegisterJob("rates", refresher.RunOnce)
	jobs.RegisterJob("housekeeping", housekeeper.RunOnce)

	schedule := cron.New()
	addSchedule(schedule, jobs, logger, "billing", cfg.Cron.BillingSchedule)
	addSchedule(schedule, jobs, logger, "reminders", cfg.Cron.ReminderSchedule)
	addSchedule(schedule, jobs, logger, "rates", cfg.Cron.RateSchedule)
	addSchedule(schedule, jobs, logger, "housekeeping", cfg.Cron.HousekeepingSchedule)
	schedule.Start()

	// HTTP trigger server
	triggerServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      jobs.Mux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual job runs can be slow
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := triggerServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("trigger server error", ports.Err(err))
		}
	}()

	// Metrics and health server
	healthChecker := observability.NewHealthChecker(store.Client())
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker)

	// Teardown order reverses registration: stop producing work, then wait
	// for running jobs, then close storage
	manager := shutdown.NewManager(logger, 30*time.Second)
	manager.RegisterCloser("redis", store)
	manager.Register("jobs", tracker.Shutdown)
	manager.Register("trigger-server", triggerServer.Shutdown)
	manager.RegisterNoErr("metrics-server", func() {
		if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
			logger.Error("metrics server shutdown failed", ports.Err(err))
		}
	})
	manager.Register("cron", func(ctx context.Context) error {
		stopCtx := schedule.Stop()
		select {
		case <-stopCtx.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	logger.Info("billing service started")
	manager.WaitForShutdown()
}

func addSchedule(schedule *cron.Cron, jobs *cronHandler.Handler, logger ports.Logger, name, spec string) {
	_, err := schedule.AddFunc(spec, func() {
		jobs.Run(name, timeutil.Today())
	})
	if err != nil {
		logger.Error("invalid schedule",
			ports.String("job", name),
			ports.String("spec", spec),
			ports.Err(err))
		os.Exit(1)
	}
}

func initLogger(cfg config.LoggerConfig) (*zaplog.Adapter, error) {
	if cfg.Development {
		return zaplog.NewDevelopment(cfg.Level)
	}
	return zaplog.NewProduction(cfg.Level)
}
