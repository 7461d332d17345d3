// Command ratings-recalc rewrites the denormalized average rating on every
// property. Run it after bulk review imports or to repair drift.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ulasari/RentalGo/internal/config"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/repository/postgres"
	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/pkg/database"
	pkgkafka "github.com/ulasari/RentalGo/pkg/kafka"
	"github.com/ulasari/RentalGo/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("ratings-recalc", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	defer producer.Close()

	reviews := service.NewReviewService(
		postgres.NewReviewRepository(pool),
		event.NewProducer(producer, log),
		log,
	)

	touched, err := reviews.RecalculateAllRatings(ctx)
	if err != nil {
		log.Error("recalculation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("recalculation complete", slog.Int("properties", touched))
}
