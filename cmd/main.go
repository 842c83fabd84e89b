package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tokenetes/delegation-gateway/api"
	"github.com/tokenetes/delegation-gateway/audit"
	"github.com/tokenetes/delegation-gateway/backend"
	"github.com/tokenetes/delegation-gateway/config"
	"github.com/tokenetes/delegation-gateway/delegationtoken"
	"github.com/tokenetes/delegation-gateway/delegationverifier"
	"github.com/tokenetes/delegation-gateway/dispatcher"
	"github.com/tokenetes/delegation-gateway/revocation"
	"github.com/tokenetes/delegation-gateway/sessionverifier"
	"github.com/tokenetes/delegation-gateway/trustbundlemanager"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

const (
	SERVICE_NAME                = "delegation-gateway"
	SHUTDOWN_TIMEOUT            = 15 * time.Second
	REVOCATION_CLEANUP_INTERVAL = time.Minute
)

type App struct {
	Router             *mux.Router
	Config             *config.Config
	HttpClient         *http.Client
	DelegationVerifier *delegationverifier.DelegationVerifier
	Revoker            revocation.Revoker
	SessionVerifier    *sessionverifier.SessionVerifier
	AuditLogger        *audit.Logger
	AuditStream        *audit.StreamHub
	Backend            backend.Backend
	Logger             *zap.Logger
	closers            []func(context.Context) error
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Cannot initialize Zap logger: %v.", err)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appConfig := config.GetAppConfig()

	app := &App{
		Router:     mux.NewRouter(),
		Config:     appConfig,
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}

	if err := app.initialize(ctx); err != nil {
		logger.Fatal("Error initializing delegation gateway:", zap.Error(err))
	}

	app.initializeRoutes()

	srv := &http.Server{
		Handler:      app.Router,
		Addr:         fmt.Sprintf("0.0.0.0:%d", appConfig.GatewayPort),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	adminAPI := &api.API{
		ApiPort:            appConfig.AdminPort,
		DelegationVerifier: app.DelegationVerifier,
		Revoker:            app.Revoker,
		AuditSinks:         app.AuditLogger.SinkNames(),
		AuditStream:        app.auditStreamHandler(),
		Logger:             logger,
	}
	adminSrv := adminAPI.Server()

	go func() {
		if err := adminAPI.Run(adminSrv); err != nil {
			logger.Error("Admin API server stopped.", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("Starting delegation gateway...", zap.Int("port", appConfig.GatewayPort))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Delegation gateway server stopped.", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down delegation gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down gateway server.", zap.Error(err))
	}

	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down admin API server.", zap.Error(err))
	}

	if err := app.AuditLogger.Close(shutdownCtx); err != nil {
		logger.Error("Audit writes still pending at shutdown.", zap.Error(err))
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](shutdownCtx); err != nil {
			logger.Error("Error releasing resource at shutdown.", zap.Error(err))
		}
	}
}

func (a *App) initialize(ctx context.Context) error {
	var redisClient *redis.Client

	if a.Config.RevocationBackend == config.RevocationRedis || a.Config.SessionBackend == config.SessionRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
	}

	var pgPool *pgxpool.Pool

	if a.Config.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		pgPool = pool
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()

			return nil
		})
	}

	codec, err := a.newCodec(ctx)
	if err != nil {
		return err
	}

	revocationStore, err := a.newRevocationStore(ctx, redisClient, pgPool)
	if err != nil {
		return err
	}

	if revoker, ok := revocationStore.(revocation.Revoker); ok {
		a.Revoker = revoker
	}

	revocationChecker := revocation.NewChecker(revocationStore, a.Config.RevocationTimeout, a.Logger)
	a.DelegationVerifier = delegationverifier.NewDelegationVerifier(codec, revocationChecker, a.Logger)

	var sessionStore sessionverifier.Store
	if a.Config.SessionBackend == config.SessionRedis {
		sessionStore = sessionverifier.NewRedisStore(redisClient, a.Config.SessionKeyPrefix)
	} else {
		a.Logger.Warn("Using in-memory session store; it starts empty and is only for development and tests.")
		sessionStore = sessionverifier.NewMemoryStore()
	}

	a.SessionVerifier = sessionverifier.NewSessionVerifier(sessionStore, a.Logger)

	sinks, err := a.newAuditSinks(ctx)
	if err != nil {
		return err
	}

	a.AuditLogger = audit.NewLogger(sinks, a.Config.AuditSinkTimeout, a.Logger)

	upstream, err := a.newBackend(pgPool)
	if err != nil {
		return err
	}

	a.Backend = upstream

	return nil
}

func (a *App) newCodec(ctx context.Context) (*delegationtoken.Codec, error) {
	var keySet delegationtoken.KeySet

	if a.Config.DelegationJWKSURL != "" {
		trustBundleManager := trustbundlemanager.NewTrustBundleManager(a.Config.DelegationJWKSURL, a.HttpClient, a.Config.TrustBundleRefresh, a.Logger)

		if err := trustBundleManager.FetchWithBackoff(ctx); err != nil {
			return nil, fmt.Errorf("failed to fetch delegation trust bundle: %w", err)
		}

		trustBundleManager.Start(ctx)

		keySet = trustBundleManager
	}

	var hmacSecret []byte
	if a.Config.DelegationHMACSecret != "" {
		hmacSecret = []byte(a.Config.DelegationHMACSecret)
	}

	codec, err := delegationtoken.NewCodec(hmacSecret, keySet, a.Config.DelegationAllowedAlgs)
	if err != nil {
		return nil, fmt.Errorf("failed to create delegation token codec: %w", err)
	}

	return codec, nil
}

func (a *App) newRevocationStore(ctx context.Context, redisClient *redis.Client, pgPool *pgxpool.Pool) (revocation.Store, error) {
	switch a.Config.RevocationBackend {
	case config.RevocationRedis:
		return revocation.NewRedisStore(redisClient, a.Config.RevocationKeyPrefix), nil
	case config.RevocationPostgres:
		return revocation.NewPostgresStore(pgPool), nil
	case config.RevocationMemory:
		a.Logger.Warn("Using in-memory revocation store; revocations are not shared across instances.")

		store := revocation.NewMemoryStore()

		go func() {
			ticker := time.NewTicker(REVOCATION_CLEANUP_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					if removed := store.Cleanup(now); removed > 0 {
						a.Logger.Debug("Removed expired revocations.", zap.Int("count", removed))
					}
				}
			}
		}()

		return store, nil
	default:
		return nil, fmt.Errorf("unsupported revocation backend %q", a.Config.RevocationBackend)
	}
}

func (a *App) newAuditSinks(ctx context.Context) ([]audit.Sink, error) {
	var sinks []audit.Sink

	if a.Config.AuditLogSink {
		sinks = append(sinks, audit.NewLogSink(a.Logger))
	}

	if a.Config.OtelExporterOTLPEndpoint != "" {
		meterProvider, err := newMeterProvider(ctx, a.Config.OtelExporterOTLPEndpoint)
		if err != nil {
			return nil, err
		}

		otel.SetMeterProvider(meterProvider)
		a.closers = append(a.closers, meterProvider.Shutdown)

		metricsSink, err := audit.NewMetricsSink(meterProvider.Meter(SERVICE_NAME))
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics audit sink: %w", err)
		}

		sinks = append(sinks, metricsSink)
	}

	if a.Config.AuditS3Bucket != "" {
		s3Sink, err := audit.NewS3Sink(ctx, audit.S3SinkConfig{
			Bucket:   a.Config.AuditS3Bucket,
			Region:   a.Config.AuditS3Region,
			Endpoint: a.Config.AuditS3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object store audit sink: %w", err)
		}

		sinks = append(sinks, s3Sink)
	}

	if a.Config.AuditWebhookURL != "" {
		webhookClient := a.HttpClient

		if a.Config.AuditWebhookSpiffeID != nil {
			client, source, err := audit.NewSPIFFEHTTPClient(ctx, *a.Config.AuditWebhookSpiffeID)
			if err != nil {
				return nil, fmt.Errorf("failed to create SPIFFE webhook client: %w", err)
			}

			webhookClient = client
			a.closers = append(a.closers, withContext(source))
		}

		sinks = append(sinks, audit.NewWebhookSink(a.Config.AuditWebhookURL, webhookClient))
	}

	if a.Config.AuditStreamSink {
		a.AuditStream = audit.NewStreamHub(a.Logger)
		sinks = append(sinks, a.AuditStream)
	}

	return sinks, nil
}

func (a *App) newBackend(pgPool *pgxpool.Pool) (backend.Backend, error) {
	switch a.Config.BackendMode {
	case config.BackendProxy:
		proxy, err := backend.NewProxyBackend(a.Config.UpstreamURL, a.HttpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy backend: %w", err)
		}

		return proxy, nil
	case config.BackendCustomer:
		var profiles backend.ProfileStore

		if pgPool != nil {
			profiles = backend.NewPostgresProfileStore(pgPool)
		} else {
			a.Logger.Warn("DATABASE_URL not set; customer backend is using an empty in-memory profile store.")
			profiles = backend.NewMemoryProfileStore()
		}

		return backend.NewCustomerBackend(profiles), nil
	default:
		return nil, fmt.Errorf("unsupported backend mode %q", a.Config.BackendMode)
	}
}

func (a *App) auditStreamHandler() http.Handler {
	if a.AuditStream == nil {
		return nil
	}

	return a.AuditStream
}

func (a *App) initializeRoutes() {
	gateway := dispatcher.NewDispatcher(a.DelegationVerifier, a.SessionVerifier, a.AuditLogger, a.Backend, a.Logger)

	a.Router.PathPrefix("/").Handler(gateway)
}

func newMeterProvider(ctx context.Context, endpoint string) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", SERVICE_NAME))

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

func withContext(c io.Closer) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}
