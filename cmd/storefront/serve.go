package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_giftpack/internal/cache"
	"github.com/fjod/go_giftpack/internal/catalog"
	"github.com/fjod/go_giftpack/internal/checkout"
	"github.com/fjod/go_giftpack/internal/config"
	"github.com/fjod/go_giftpack/internal/events"
	h "github.com/fjod/go_giftpack/internal/http"
	"github.com/fjod/go_giftpack/internal/mailer"
	"github.com/fjod/go_giftpack/internal/repository"
	"github.com/fjod/go_giftpack/internal/service"
	"github.com/fjod/go_giftpack/internal/stock"
	"github.com/fjod/go_giftpack/internal/storage"
	"github.com/fjod/go_giftpack/internal/tracking"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func openCatalog(cfg *config.Config, log *zap.Logger) (*catalog.Repository, error) {
	repo, err := catalog.NewRepository(cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := repo.RunMigrations(); err != nil {
		repo.Close()
		return nil, err
	}
	log.Info("catalog ready", zap.String("driver", cfg.CatalogDriver))
	return repo, nil
}

// openStorage builds the profile key-value store. The returned func releases
// its connections.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.KV, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Warn("profile state is kept in memory and lost on restart")
		return storage.NewMemoryKV(), func() {}, nil

	case config.StorageRedis, config.StorageMongo:
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		redisKV := cache.NewRedisCache(redisClient)

		if cfg.StorageBackend == config.StorageRedis {
			return redisKV, func() { redisClient.Close() }, nil
		}

		mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		repo := repository.NewMongoRepository(mongoDB)
		if err := repo.CreateIndexes(ctx); err != nil {
			log.Warn("failed to create profile indexes", zap.Error(err))
		}
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

		closeFn := func() {
			redisClient.Close()
			mongoDB.Client().Disconnect(context.Background())
		}
		return service.NewTieredStore(repo, redisKV, log), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func serve(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	catalogRepo, err := openCatalog(cfg, log)
	if err != nil {
		return err
	}
	defer catalogRepo.Close()

	kv, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	stockManager := stock.NewManager(catalogRepo, log)
	defer stockManager.Close()

	sessions := service.NewSessions(service.SessionDeps{
		KV:      kv,
		Stock:   stockManager,
		Catalog: catalogRepo,
		Logger:  log,
	})
	go sessions.RunJanitor(ctx, cfg.SessionMaxIdle)

	var sender mailer.Sender = mailer.NopSender{Logger: log}
	if cfg.MailerURL != "" {
		sender = mailer.NewClient(cfg.MailerURL, cfg.MailerTimeout, log)
	}

	var publisher events.OrderPublisher = events.NopPublisher{Logger: log}
	if len(cfg.KafkaBrokers) > 0 {
		p := events.NewPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer p.Close()
		publisher = p

		// every replica reads all order events to drop stale sessions
		host, _ := os.Hostname()
		poller := events.NewPoller(sessions, log, cfg.KafkaTopic, "storefront-"+host, cfg.KafkaBrokers...)
		defer poller.Close()
		go poller.Run(ctx)
		log.Info("order events enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	tracker := tracking.NewTracker(cfg.TrackerURL, log)
	defer tracker.Wait()

	checkoutSvc := checkout.NewService(sender, publisher, stockManager, cfg.ShippingCost, log)

	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(catalogRepo, cfg.RequestTimeout, log),
		Cart:     h.NewCartHandler(sessions, catalogRepo, cfg.RequestTimeout, log),
		Packs:    h.NewPackHandler(sessions, catalogRepo, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(sessions, checkoutSvc, log),
		Visits:   h.NewVisitHandler(tracker),
	}, h.RouterOptions{
		RequestTimeout: cfg.RequestTimeout,
		MaxRequestBody: cfg.MaxRequestBody,
		Logger:         log,
	})

	// incoming traceparent headers become the parent of the request span
	otel.SetTextMapPropagator(propagation.TraceContext{})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("health endpoint listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-errCh:
		log.Error("server failed", zap.Error(err))
	}

	log.Info("shutting down server...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("server forced to shutdown", zap.Error(shutdownErr))
	}
	grpcServer.GracefulStop()

	log.Info("server exited")
	return err
}
