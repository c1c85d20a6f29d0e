// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-proxy-subscription/internal/config"
	panelAdapters "telegram-proxy-subscription/internal/infra/adapters/panel"
	payAdapters "telegram-proxy-subscription/internal/infra/adapters/payment"
	rateAdapters "telegram-proxy-subscription/internal/infra/adapters/rates"
	tele "telegram-proxy-subscription/internal/infra/adapters/telegram"
	pg "telegram-proxy-subscription/internal/infra/db/postgres"
	"telegram-proxy-subscription/internal/infra/logging"
	"telegram-proxy-subscription/internal/infra/metrics"
	red "telegram-proxy-subscription/internal/infra/redis"
	"telegram-proxy-subscription/internal/infra/sched"
	"telegram-proxy-subscription/internal/infra/web"
	"telegram-proxy-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	txm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateCache := red.NewRateCache(redisClient)

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	serverRepo := pg.NewServerRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	pendingRepo := pg.NewPendingCreditRepo(pool)
	addQueue := pg.NewAddQueue(pool)
	deleteQueue := pg.NewDeleteQueue(pool)
	notificationQueue := pg.NewNotificationQueue(pool)

	// ---- Adapters ----
	panelClient := panelAdapters.NewXUIClient(15*time.Second, logger)
	gateway := payAdapters.NewCryptomusGateway(cfg.Payment.Cryptomus.MerchantUUID, cfg.Payment.Cryptomus.PaymentKey, cfg.Payment.Cryptomus.BaseURL, logger)
	fiatSource := rateAdapters.NewAbanTetherSource(cfg.Rates.FiatURL, cfg.Rates.FiatToken)
	cryptoSource := rateAdapters.NewCryptomusRateSource(cfg.Rates.CryptoURL)
	notifier, err := tele.NewBotNotifier(cfg.Bot.Token, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(rateCache, cfg.Pricing.PerGBUSD)
	notifUC := usecase.NewNotificationUseCase(notificationQueue, cfg.Bot.AdminIDs, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, serverRepo, productRepo, userRepo, addQueue, pricingUC, panelClient, txm, cfg.Test.TrafficGB, cfg.Test.Duration, logger)
	paymentUC := usecase.NewPaymentUseCase(gateway, invoiceRepo, pendingRepo, userRepo, notifUC, pricingUC, txm, cfg.Workers.QueueBatch, logger)
	_ = usecase.NewUserUseCase(userRepo, logger)

	// ---- Workers ----
	w := cfg.Workers
	workers := []interface{ Run(context.Context) error }{
		sched.NewProvisionWorker(w.ProvisionInterval, w.QueueBatch, addQueue, serverRepo, panelClient, logger),
		sched.NewDeprovisionWorker(w.DeprovisionInterval, w.DeletePacing, w.QueueBatch, deleteQueue, serverRepo, panelClient, logger),
		sched.NewMeteringWorker(w.MeteringInterval, subRepo, serverRepo, panelClient, notifUC, logger),
		sched.NewExpiryScanner(w.ExpiryScanInterval, subRepo, deleteQueue, logger),
		sched.NewInvoiceWorker(w.InvoiceInterval, paymentUC, logger),
		sched.NewNotificationWorker(w.NotificationInterval, w.QueueBatch, notificationQueue, notifier, logger),
		sched.NewRateRefresher(cfg.Rates.FiatInterval, cfg.Rates.CryptoInterval, fiatSource, cryptoSource, rateCache, logger),
	}
	for _, worker := range workers {
		go func(worker interface{ Run(context.Context) error }) {
			if err := worker.Run(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("worker stopped")
			}
		}(worker)
	}

	// ---- Web server ----
	webSrv := web.NewServer(cfg.Web.Port, subUC, cfg.Web.LinkSecret, logger)
	go func() {
		if err := webSrv.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("web server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	time.Sleep(time.Second)
}
