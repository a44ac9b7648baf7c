package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"main/internal/config"

	appdailysync "main/internal/application/service/dailysync"
	appingest "main/internal/application/service/ingest"
	applots "main/internal/application/service/lots"
	appmarketindex "main/internal/application/service/marketindex"
	appportfolio "main/internal/application/service/portfolio"
	"main/internal/infrastructure/kis"
	infraledger "main/internal/infrastructure/ledger"
	inframarketindex "main/internal/infrastructure/marketindex"

	ledger "main/internal/domain/entity/ledger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	dateFlag := flag.String("date", "", "target date (YYYY-MM-DD, default: today)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	targetDate, err := resolveDate(*dateFlag)
	if err != nil {
		logger.Fatalf("invalid --date: %v", err)
	}

	store, err := infraledger.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	indexStore, err := inframarketindex.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("connect postgres: %v", err)
	}
	defer indexStore.Close()

	broker := kis.NewClient(cfg.KIS, logger)
	provider := inframarketindex.NewStooqProvider(cfg.Index.BaseURL, cfg.Index.Timeout)

	sync := appdailysync.NewService(
		appingest.NewService(broker, store.Trades, store.Holdings, store.Summary, logger),
		applots.NewService(store.Trades, store.Holdings, store.Lots, logger),
		appportfolio.NewService(store.Trades, store.Lots, store.Summary, store.Snapshots, logger),
		appmarketindex.NewService(provider, indexStore, logger),
		store.Runs,
		logger,
	)

	if err := sync.Run(ctx, targetDate); err != nil {
		logger.Fatalf("daily sync failed: %v", err)
	}
}

func resolveDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	date, err := time.Parse(ledger.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", value, err)
	}
	return date, nil
}
