// Backfill migrates the schema and replays the daily pipeline over a date
// range so the daily snapshot series has no gaps.
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
	"main/internal/infrastructure/ledger/models"
	inframarketindex "main/internal/infrastructure/marketindex"

	ledger "main/internal/domain/entity/ledger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	startFlag := flag.String("start-date", "", "first date to backfill (YYYY-MM-DD, required)")
	endFlag := flag.String("end-date", "", "last date to backfill (YYYY-MM-DD, default: today)")
	migrateOnly := flag.Bool("migrate-only", false, "run schema migration and exit")
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

	if err := migrate(cfg.Postgres.DSN); err != nil {
		logger.Fatalf("migrate schema: %v", err)
	}
	logger.Info("schema migrated")
	if *migrateOnly {
		return
	}

	start, end, err := resolveRange(*startFlag, *endFlag)
	if err != nil {
		logger.Fatalf("invalid date range: %v", err)
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

	if err := sync.Backfill(ctx, start, end); err != nil {
		logger.Fatalf("backfill failed: %v", err)
	}
}

func migrate(dsn string) error {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open gorm: %w", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveRange(startValue, endValue string) (time.Time, time.Time, error) {
	if startValue == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--start-date is required")
	}
	start, err := time.Parse(ledger.DateLayout, startValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --start-date %q: %w", startValue, err)
	}

	end := time.Now()
	if endValue != "" {
		end, err = time.Parse(ledger.DateLayout, endValue)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --end-date %q: %w", endValue, err)
		}
	}
	if ledger.Day(end).Before(ledger.Day(start)) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date")
	}
	return start, end, nil
}
