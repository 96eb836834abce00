package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/nutriform/api/internal/di"
	"github.com/nutriform/api/internal/handlers"
	"github.com/nutriform/api/internal/payments"
	"github.com/nutriform/api/internal/platform/auth"
	"github.com/nutriform/api/internal/platform/config"
	"github.com/nutriform/api/internal/platform/events"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
	"github.com/nutriform/api/internal/platform/observability"
	firestoreRepo "github.com/nutriform/api/internal/repositories/firestore"
	"github.com/nutriform/api/internal/repositories/promoregistry"
	"github.com/nutriform/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	var registryOpts []firestoreRepo.RegistryOption
	if len(cfg.Checkout.PromoCodes) > 0 {
		registryOpts = append(registryOpts,
			firestoreRepo.WithPromoCodeRepository(promoregistry.NewStaticRegistry(cfg.Checkout.PromoCodes)))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, registryOpts...)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	firebaseClient, err := auth.NewFirebaseClient(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase client", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseClient)

	var pubsubTopic *pubsub.Topic
	var publisher services.OrderEventPublisher
	if strings.TrimSpace(cfg.PubSub.ProjectID) != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer pubsubClient.Close()

		pubsubTopic = pubsubClient.Topic(cfg.PubSub.OrderEventTopic)
		defer pubsubTopic.Stop()

		publisher, err = events.NewPubSubOrderEventPublisher(pubsubTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
	} else {
		logger.Warn("pubsub project not configured; order events disabled")
	}

	var cards services.PaymentMethodLookup
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		verifier, err := payments.NewStripePaymentMethodVerifier(payments.StripeVerifierConfig{
			APIKey:    cfg.Stripe.APIKey,
			AccountID: cfg.Stripe.AccountID,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe verifier", zap.Error(err))
		}
		cards = verifier
	} else {
		logger.Warn("stripe api key not configured; card metadata lookups disabled")
	}

	container, err := di.NewContainer(cfg, di.Deps{
		Registry:  registry,
		Accounts:  firebaseClient,
		Cards:     cards,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	catalogHandlers := handlers.NewCatalogHandlers(container.Services.Catalog)
	promoHandlers := handlers.NewPromoHandlers(container.Services.Promos)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, container.Services.Checkout)
	orderHandlers := handlers.NewOrderHandlers(authenticator, container.Services.Orders)
	meHandlers := handlers.NewMeHandlers(authenticator, container.Services.Users)

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthVersion(buildVersion()),
		handlers.WithReadinessProbe("firestore", firestoreProbe(firestoreClient)),
	}
	if pubsubTopic != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessProbe("pubsub", pubsubProbe(pubsubTopic)))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	var opts []handlers.Option
	opts = append(opts, handlers.WithMiddlewares(middlewares...))
	opts = append(opts, handlers.WithHealthHandlers(healthHandlers))
	opts = append(opts, handlers.WithProductRoutes(catalogHandlers.Routes))
	opts = append(opts, handlers.WithPromoRoutes(promoHandlers.Routes))
	opts = append(opts, handlers.WithCheckoutRoutes(checkoutHandlers.Routes))
	opts = append(opts, handlers.WithOrderRoutes(orderHandlers.Routes))
	opts = append(opts, handlers.WithMeRoutes(meHandlers.Routes))

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("nutriform api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildVersion() string {
	if v := strings.TrimSpace(os.Getenv("API_BUILD_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func firestoreProbe(client *firestore.Client) handlers.ReadinessProbe {
	return func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
		defer cancel()
		iter := client.Collections(probeCtx)
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}

func pubsubProbe(topic *pubsub.Topic) handlers.ReadinessProbe {
	return func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		ok, err := topic.Exists(probeCtx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("topic %s not found", topic.ID())
		}
		return nil
	}
}
