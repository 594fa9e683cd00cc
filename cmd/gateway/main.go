// Storefront gateway - cart, checkout and account API in front of a
// WooCommerce store. Designed for Cloud Run deployment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront-gateway/internal/account"
	"storefront-gateway/internal/adapter"
	"storefront-gateway/internal/auth"
	"storefront-gateway/internal/cart"
	"storefront-gateway/internal/catalog"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/config"
	"storefront-gateway/internal/handler"
	"storefront-gateway/internal/middleware"
	"storefront-gateway/internal/session"
	"storefront-gateway/internal/shipping"
	"storefront-gateway/internal/storecart"
	"storefront-gateway/internal/woocommerce"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.SiteURL),
		slog.String("session_backend", cfg.Session.Backend),
	)

	wc, err := woocommerce.New(woocommerce.Config{
		StoreURL:       cfg.Store.SiteURL,
		ConsumerKey:    cfg.Store.ConsumerKey,
		ConsumerSecret: cfg.Store.ConsumerSecret,
	})
	if err != nil {
		return fmt.Errorf("creating store client: %w", err)
	}

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer closeSessions()

	gateway := &adapter.Gateway{
		Cart:      cart.NewEngine(cart.NewOrderRepository(wc, cfg.PendingOrdersPageSize, logger), wc, logger),
		StoreCart: storecart.NewService(wc, sessions, logger),
		Checkouts: checkout.NewService(wc, sessions, checkout.PaymentConfig{
			Delay:       cfg.Payment.Delay,
			DeclineRate: cfg.Payment.DeclineRate,
		}, logger),
		Shipping: shipping.NewService(wc, sessions, logger),
		Account:  account.NewService(wc, logger),
		Catalog:  catalog.NewService(wc, catalog.NewSlugCache(wc, cfg.Cache.Size, cfg.Cache.TTL), cfg.AllowedAttributes, logger),
	}

	h := handler.New(gateway, auth.NewVerifier(cfg.Store.JWTSecret, logger), logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → logging → CORS → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.CORS(cfg.CORSOrigins, logger),
	)(mux)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: otelhttp.NewHandler(httpHandler, "storefront-gateway"),
		// Checkout holds a request open through the simulated payment delay.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go session.RunSweeper(sweepCtx, sessions, cfg.Session.SweepInterval, cfg.Session.TTL, logger)

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopSweeper()

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// openSessions creates the configured session store and its cleanup.
func openSessions(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCPProject)
		if err != nil {
			return nil, nil, fmt.Errorf("creating firestore client: %w", err)
		}
		store, err := session.NewFirestoreStore(client, cfg.Session.Collection, cfg.Session.TTL)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
