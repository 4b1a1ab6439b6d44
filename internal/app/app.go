package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/florist/internal/cache"
	"github.com/xenking/florist/internal/domain/catalog"
	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/purchase"
	"github.com/xenking/florist/internal/event"
	"github.com/xenking/florist/internal/handler"
	"github.com/xenking/florist/internal/repository"
	"github.com/xenking/florist/pkg/health"
	"github.com/xenking/florist/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Redis is optional: without it the catalog is read straight from
	// Postgres and rate limits are kept in process memory.
	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		client, err := newRedis(cfg.RedisURL, m)
		if err != nil {
			return errors.Wrap(err, "create redis client")
		}
		defer func() { _ = client.Close() }()
		rdb = client
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(client))
	}

	var events interface {
		order.Publisher
		purchase.Publisher
	} = event.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := event.NewPublisher(event.NewWriter(cfg.Kafka.Brokers), cfg.Kafka.OrderTopic, cfg.Kafka.PurchaseTopic)
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		events = pub
		healthSvc.AddReadinessCheck("kafka", 5*time.Second, health.KafkaCheck(cfg.Kafka.Brokers))
	} else {
		lg.Info("No Kafka brokers configured, events are dropped")
	}

	healthSvc.Start(ctx, 10*time.Second)

	// Repositories, with the coupon and shipping catalogs read through the cache.
	catalogCache := cache.New(rdb, cfg.CatalogCacheTTL)
	productRepo := repository.NewProductRepository(pool)
	couponRepo := cache.NewCouponRepository(repository.NewCouponRepository(pool), catalogCache)
	shippingRepo := cache.NewShippingRepository(repository.NewShippingRepository(pool), catalogCache)
	supplierRepo := repository.NewSupplierRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	purchaseRepo := repository.NewPurchaseRepository(pool)

	// Domain services.
	meter := m.MeterProvider().Meter("florist")
	loader := catalog.NewLoader(productRepo, coupon.NewRepoValidator(couponRepo), shippingRepo)
	orderService, err := order.NewService(loader, orderRepo, events, meter)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	purchaseService, err := purchase.NewService(loader, supplierRepo, purchaseRepo, events, meter)
	if err != nil {
		return errors.Wrap(err, "create purchase service")
	}

	// HTTP: API routes and health probes on one chi router.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		loader,
		orderService,
		purchaseService,
	)
	router := h.Router()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	var limiter httpmiddleware.Limiter
	if rdb != nil {
		limiter = httpmiddleware.NewRedisLimiter(rdb, "florist:ratelimit:", cfg.RateLimit.Max, cfg.RateLimit.Window)
	} else {
		mem := httpmiddleware.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		go mem.RunSweeper(ctx)
		limiter = mem
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID, "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(limiter, httpmiddleware.ClientIP),
			httpmiddleware.Instrument("florist-api", m.TracerProvider(), m.MeterProvider()),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newRedis parses url and returns a client traced and metered through the
// application telemetry.
func newRedis(url string, m *app.Telemetry) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(m.TracerProvider())); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(m.MeterProvider())); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "instrument redis metrics")
	}
	return client, nil
}
