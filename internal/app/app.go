package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ulasari/RentalGo/internal/config"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/geo"
	handler "github.com/ulasari/RentalGo/internal/handler/http"
	"github.com/ulasari/RentalGo/internal/repository/postgres"
	"github.com/ulasari/RentalGo/internal/repository/postgres/migrations"
	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/internal/storage/minio"
	"github.com/ulasari/RentalGo/pkg/database"
	"github.com/ulasari/RentalGo/pkg/health"
	"github.com/ulasari/RentalGo/pkg/httpclient"
	pkgkafka "github.com/ulasari/RentalGo/pkg/kafka"
	"github.com/ulasari/RentalGo/pkg/tracing"
)

// App wires together all dependencies and runs the rental service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	redis           *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	prometheus.MustRegister(database.NewPoolStatsCollector(pool, "rental-service"))

	// Redis backs the geocoding cache only; the service runs without it.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, geocoding cache disabled", slog.String("error", err.Error()))
		redisClient = nil
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Object storage for property images.
	store, err := minio.New(minio.Config{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		Bucket:        cfg.MinioBucket,
		UseSSL:        cfg.MinioUseSSL,
		PublicBaseURL: cfg.MinioPublicURL,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// Geocoder. Disabled when no base URL is configured.
	var geocoder geo.Geocoder
	if cfg.GeocoderBaseURL != "" {
		geoClient := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("geocoder"),
			logger,
		)
		geocoder = geo.NewHTTPGeocoder(cfg.GeocoderBaseURL, geoClient, redisClient, logger)
	}

	// Distributed tracing.
	traceCfg := tracing.DefaultConfig("rental-service")
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
	traceCfg.SampleRate = cfg.TraceSample
	traceCfg.Enabled = cfg.TracingEnabled

	tracingShutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Build the dependency graph.
	propertyRepo := postgres.NewPropertyRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	favoriteRepo := postgres.NewFavoriteRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	eventProducer := event.NewProducer(producer, logger)

	propertyService := service.NewPropertyService(propertyRepo, bookingRepo, store, geocoder, eventProducer, logger)
	bookingService := service.NewBookingService(bookingRepo, propertyRepo, eventProducer, logger)
	paymentService := service.NewPaymentService(paymentRepo, bookingRepo, eventProducer, logger)
	reviewService := service.NewReviewService(reviewRepo, eventProducer, logger)
	favoriteService := service.NewFavoriteService(favoriteRepo, propertyRepo, logger)

	// Health checks. Kafka and redis degrade readiness without failing it.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := handler.NewRouter(handler.RouterDeps{
		Properties:     propertyService,
		Bookings:       bookingService,
		Payments:       paymentService,
		Reviews:        reviewService,
		Favorites:      favoriteService,
		TokenValidator: newTokenVerifier(cfg.AuthBaseURL, userRepo, logger),
		Health:         healthHandler,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
