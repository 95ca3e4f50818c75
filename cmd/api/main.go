package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/ecomarket/marketplace-backend/api/routes"
	"github.com/ecomarket/marketplace-backend/internal/cart"
	"github.com/ecomarket/marketplace-backend/internal/impact"
	"github.com/ecomarket/marketplace-backend/internal/orders"
	"github.com/ecomarket/marketplace-backend/internal/payments"
	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/internal/reviews"
	"github.com/ecomarket/marketplace-backend/internal/users"
	"github.com/ecomarket/marketplace-backend/pkg/config"
	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/metrics"
	"github.com/ecomarket/marketplace-backend/pkg/migrate"
	"github.com/ecomarket/marketplace-backend/pkg/outbox"
	"github.com/ecomarket/marketplace-backend/pkg/redis"
	stripeclient "github.com/ecomarket/marketplace-backend/pkg/stripe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured; idempotency and webhook dedupe disabled")
	}

	stripeClient, err := stripeclient.NewClient(ctx, cfg.Stripe, logg)
	switch {
	case errors.Is(err, stripeclient.ErrNotConfigured):
		logg.Warn(ctx, "stripe not configured; payment endpoints will answer 503")
	case err != nil:
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	marketplaceMetrics := metrics.NewMarketplaceMetrics(promRegistry)

	svc, err := buildServices(dbClient, stripeClient, marketplaceMetrics, logg)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Stripe:         stripeClient,
			HTTPMetrics:    metrics.NewHTTPMetrics(promRegistry),
			MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		}, svc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(dbClient *db.Client, stripeClient *stripeclient.Client, m *metrics.MarketplaceMetrics, logg *logger.Logger) (routes.Services, error) {
	conn := dbClient.DB()
	productRepo := product.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	userSvc, err := users.NewService(users.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	productSvc, err := product.NewService(productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	reviewSvc, err := reviews.NewService(reviews.NewRepository(conn), productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	orderSvc, err := orders.NewService(orderRepo, dbClient, publisher)
	if err != nil {
		return routes.Services{}, err
	}
	placement, err := orders.NewPlacement(orders.PlacementParams{
		Tx:       dbClient,
		Orders:   orderRepo,
		Cart:     cartRepo,
		Products: productRepo,
		Users:    userSvc,
		Outbox:   publisher,
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	paymentParams := payments.ServiceParams{
		Orders:  orderSvc,
		Metrics: m,
		Logger:  logg,
	}
	if stripeClient != nil {
		paymentParams.Processor = stripeClient
	}
	paymentSvc, err := payments.NewService(paymentParams)
	if err != nil {
		return routes.Services{}, err
	}
	impactSvc, err := impact.NewService(orderSvc, userSvc)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products:  productSvc,
		Reviews:   reviewSvc,
		Cart:      cartSvc,
		Orders:    orderSvc,
		Placement: placement,
		Payments:  paymentSvc,
		Impact:    impactSvc,
		Users:     userSvc,
	}, nil
}
