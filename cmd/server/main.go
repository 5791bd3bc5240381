package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/PowerStats/config"
	"github.com/sifan077/PowerStats/internal/app/geo"
	apprepository "github.com/sifan077/PowerStats/internal/app/repository"
	appserver "github.com/sifan077/PowerStats/internal/app/server"
	appservice "github.com/sifan077/PowerStats/internal/app/service"
	"github.com/sifan077/PowerStats/internal/app/session"
	"github.com/sifan077/PowerStats/internal/http/handler"
	"github.com/sifan077/PowerStats/internal/http/middleware"
	infraClickHouse "github.com/sifan077/PowerStats/internal/infra/clickhouse"
	"github.com/sifan077/PowerStats/internal/infra/logger"
	infraNATS "github.com/sifan077/PowerStats/internal/infra/nats"
	infraPostgres "github.com/sifan077/PowerStats/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/PowerStats/internal/infra/prometheus"
	infraRedis "github.com/sifan077/PowerStats/internal/infra/redis"
	"go.uber.org/zap"
)

// store is the selected event store backend.
type store struct {
	events    apprepository.EventRepository
	analytics apprepository.AnalyticsRepository
	realtime  apprepository.RealtimeRepository
	ping      handler.ReadyCheck
	close     func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.MustInit(logger.ConfigFromEnv())
	defer func() { _ = logger.Sync() }()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("clickhouse_host", cfg.ClickHouse.Host),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Bool("ingest_async", cfg.Ingest.Async),
	)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open event store", zap.Error(err))
	}
	defer st.close()
	log.Info("Event store ready", zap.String("driver", cfg.Store.Driver))

	readyChecks := map[string]handler.ReadyCheck{
		cfg.Store.Driver: st.ping,
	}

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	readyChecks["redis"] = func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}
	log.Info("Connected to Redis successfully")

	metrics := infraPrometheus.NewMetrics(prometheus.DefaultRegisterer)

	regions, err := geo.NewResolver(geo.Default(), cfg.Ingest.DefaultCountry)
	if err != nil {
		log.Fatal("Invalid default country", zap.Error(err))
	}

	events := st.events
	if cfg.Ingest.Async {
		natsConn, js, err := infraNATS.Connect(cfg.NATS)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		readyChecks["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("nats: not connected")
			}
			return nil
		}

		consumer := appservice.NewBeaconConsumer(js, logger.Named("beacon-consumer"), st.events)
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start beacon consumer", zap.Error(err))
		}
		events = appservice.NewBeaconPublisher(js)
		log.Info("Connected to NATS successfully, beacons are written asynchronously")
	}

	ingest := appservice.NewIngestService(appservice.IngestDeps{
		Logger: logger.Named("ingest"),
		Events: events,
		Sessions: session.NewTracker(session.TrackerConfig{
			MaxEntries:      cfg.Session.MaxEntries,
			TTL:             cfg.Session.TTL,
			ExpectedPerHour: cfg.Session.ExpectedPerHour,
		}),
		Regions:      regions,
		Metrics:      metrics,
		WriteTimeout: cfg.Ingest.WriteTimeout,
	})

	analytics := appservice.NewAnalyticsService(appservice.AnalyticsDeps{
		Logger:       logger.Named("analytics"),
		Store:        st.analytics,
		Realtime:     st.realtime,
		Catalog:      geo.Default(),
		Metrics:      metrics,
		QueryTimeout: cfg.Analytics.QueryTimeout,
	})

	if cfg.Prometheus.Enabled {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, prometheus.DefaultGatherer)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()

		refresher := appservice.NewRealtimeRefresher(logger.Named("realtime"), analytics, metrics, cfg.Analytics.RefreshInterval)
		refresher.Start()
		defer refresher.Stop()
	} else {
		log.Info("Prometheus metrics server disabled")
	}

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Ingest:    ingest,
		Analytics: analytics,
		Metrics:   metrics,
		Redis:     redisClient,
		RateLimit: middleware.RateLimitConfig{
			MaxRequests: cfg.Ingest.RateLimit,
			Window:      cfg.Ingest.RateWindow,
			KeyPrefix:   "beacon",
		},
		AllowedOrigin: cfg.Server.AllowedOrigin,
		PublicURL:     cfg.Server.PublicURL,
		BodyLimit:     cfg.Server.BodyLimit,
		ReadyChecks:   readyChecks,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr))
	if err := server.Listen(cfg.Server.Addr); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverClickHouse:
		conn, err := infraClickHouse.Connect(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, err
		}
		ch := apprepository.NewClickHouseStore(conn)
		if err := ch.EnsureSchema(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &store{
			events:    ch,
			analytics: ch,
			realtime:  ch,
			ping:      conn.Ping,
			close:     func() { _ = conn.Close() },
		}, nil

	case config.StoreDriverPostgres:
		gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("access sql db: %w", err)
		}
		if err := infraPostgres.AutoMigrate(ctx, gormDB, apprepository.Models()...); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return &store{
			events:    apprepository.NewEventRepository(gormDB),
			analytics: apprepository.NewAnalyticsRepository(gormDB),
			realtime:  apprepository.NewRealtimeRepository(pool),
			ping:      pool.Ping,
			close: func() {
				pool.Close()
				_ = sqlDB.Close()
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
