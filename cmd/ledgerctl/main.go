package main

import (
	"context"
	"os"

	"ledgerbot/internal/backend"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/config"
	"ledgerbot/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr)

	ctl := &cli.Ctl{
		Open: func(ctx context.Context) (*services.LedgerService, func() error, error) {
			if err := cfg.Validate(); err != nil {
				return nil, nil, err
			}
			ledger, result, err := cli.OpenLedger(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			return ledger, result.Cleanup, nil
		},
	}
	if cfg.DataBackend == string(backend.SQLiteBackend) {
		ctl.DBPath = cfg.SQLiteDBPath
	}

	if err := cli.NewRootCommand(ctl).Execute(); err != nil {
		os.Exit(1)
	}
}
