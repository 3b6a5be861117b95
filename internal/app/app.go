// Package app wires configuration, storage, domain services, and the HTTP
// server into a runnable API process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/cart"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/order"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/pricing"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
	"github.com/FitnessFreakCoder/freshmart/internal/handler"
	"github.com/FitnessFreakCoder/freshmart/internal/hash"
	"github.com/FitnessFreakCoder/freshmart/internal/storage/postgres"
	"github.com/FitnessFreakCoder/freshmart/internal/token"
	"github.com/FitnessFreakCoder/freshmart/pkg/health"
	"github.com/FitnessFreakCoder/freshmart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// The code filter front-runs coupon lookups; seed it from the database
	// so unknown codes never touch the repository.
	codeFilter := coupon.NewCodeFilter(cfg.CouponFilter.Capacity, cfg.CouponFilter.FalsePositiveRate)
	couponService := coupon.NewService(couponRepo, codeFilter)
	if err := couponService.ReloadFilter(ctx); err != nil {
		return errors.Wrap(err, "load coupon filter")
	}

	// Domain services.
	couponValidator := coupon.NewRepoValidator(couponRepo, codeFilter)
	engine := pricing.NewEngine(cfg.Delivery.Tariff())
	cartService := cart.NewService(productRepo, engine, couponValidator)
	orderService := order.NewService(productRepo, orderRepo, cartService, engine, couponValidator)
	userService := user.NewService(userRepo, hash.Bcrypt{})
	tokenIssuer := token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	// HTTP handlers.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		userService,
		tokenIssuer,
		productRepo,
		couponService,
		couponValidator,
		cartService,
		orderService,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	h.Register(e)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", e)

	handlerChain := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(handlerChain, "freshmart-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

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
