package main

import (
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/bot"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/config"
	apphttp "ledgerbot/internal/http"
	"ledgerbot/internal/log"
	"ledgerbot/internal/services"
	"ledgerbot/internal/telegram"
)

const janitorInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting ledgerbot")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateBot)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	ledger, backendResult, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := backendResult.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	api, err := telegram.Connect(cfg.TelegramAPIKey)
	if err != nil {
		logger.Error("Failed to connect to Telegram", log.FieldError, err)
		return
	}
	logger.Info("Authorized on Telegram", "bot", api.Self.UserName)

	sessions := bot.NewSessionStore(bot.DefaultSessionTTL)
	dispatcher := bot.NewDispatcher(ledger, sessions, logger)
	router := bot.NewRouter(dispatcher, bot.NewView(ledger.Location()), cfg.TelegramUserID, logger)
	transport := telegram.NewTransport(api, router, cfg.PollTimeout, logger)

	janitor := cache.NewJanitor(sessions)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return transport.Run(gctx) })
	g.Go(func() error { return services.NewBalanceTracker(ledger, logger).Run(gctx) })

	if cfg.Port != "" {
		srv := apphttp.NewServer(":"+cfg.Port, ledger, logger)
		janitor.Register(srv.RateLimiter())
		g.Go(func() error { return srv.Run(gctx) })
	} else {
		logger.Info("Status API disabled - no HTTP_PORT provided")
	}

	g.Go(func() error { return janitor.Run(gctx, janitorInterval) })

	if err := g.Wait(); err != nil {
		logger.Error("Ledgerbot stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Ledgerbot stopped")
}
