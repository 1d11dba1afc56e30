// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"hireflow/internal/api"
	"hireflow/internal/applications"
	"hireflow/internal/common/auth"
	"hireflow/internal/common/camunda"
	"hireflow/internal/common/config"
	"hireflow/internal/common/database"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/observability"
	"hireflow/internal/common/storage"
	"hireflow/internal/jobs"
	"hireflow/internal/notifications"
	"hireflow/internal/search"
	"hireflow/internal/wizard"
	"hireflow/pkg/registry"

	car "hireflow/internal/workers/application/create-application-record"
	sn "hireflow/internal/workers/application/send-notification"
	uas "hireflow/internal/workers/application/update-application-status"
	vad "hireflow/internal/workers/application/validate-application-data"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "worker-manager",
		Version: cfg.App.Version,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebeClient, err := camunda.Connect(ctx, camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebeClient.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.RunMigrations(ctx, pg.GetDB()); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Database migrations applied")
	}

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var index *search.Index
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		index = search.NewIndex(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", index.Name()))
	} else {
		zapLog.Info("Elasticsearch not configured, application search runs in SQL")
	}

	// --- Resume storage ---
	store, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		zapLog.Fatal("object store setup failed", zap.Error(err))
	}

	catalog := registry.Default()
	if path := cfg.Wizard.QuestionRegistryPath; path != "" {
		catalog, err = registry.LoadRegistry(path)
		if err != nil {
			zapLog.Fatal("question registry load failed", zap.String("path", path), zap.Error(err))
		}
	}

	// --- Domain services ---
	jobRepo := jobs.NewRepository(pg.GetDB(), redis.GetClient(), config.GetDuration(cfg.Jobs.CacheTTL), log)
	feed := notifications.NewStore(pg.GetDB(), redis.GetClient(), log)
	appRepo := applications.NewRepository(pg.GetDB())

	var searcher applications.Searcher
	transportOpts := []wizard.TransportOption{
		wizard.WithKeyPrefix(cfg.Storage.Prefix),
		wizard.WithObservability(obs),
		wizard.WithTransportLogger(log),
	}
	if index != nil {
		searcher = index
		transportOpts = append(transportOpts, wizard.WithIndexer(index))
	}
	appService := applications.NewService(appRepo, feed, searcher, log)
	transport := wizard.NewTransport(store, appRepo, append(transportOpts, wizard.WithNotifier(appService))...)

	// --- Session provider ---
	keycloak := auth.NewKeycloak(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
		log,
	)
	watcher := auth.NewWatcher(keycloak, config.GetDuration(cfg.Auth.SessionCheckInterval), func() {
		zapLog.Warn("Keycloak session lost, signing in again")
		if _, err := keycloak.SignIn(ctx); err != nil {
			zapLog.Error("Keycloak sign-in failed", zap.Error(err))
		}
	}, log)
	var realmKeys *auth.KeySet
	if cfg.Auth.Keycloak.URL != "" {
		if _, err := keycloak.SignIn(ctx); err != nil {
			zapLog.Warn("initial Keycloak sign-in failed", zap.Error(err))
		}
		watcher.Start(ctx)
		defer watcher.Stop()

		realmKeys = keycloak.KeySet(log)
		keysSub := realmKeys.Follow(keycloak)
		defer keysSub.Unsubscribe()
		if err := realmKeys.Refresh(ctx); err != nil {
			zapLog.Warn("realm signing keys not loaded yet", zap.Error(err))
		}
	}

	// --- Workers ---
	var workers []worker.JobWorker
	register := func(taskType string, h camunda.HandlerFunc) {
		if w := camunda.Register(zeebeClient, taskType, config.GetWorkerConfig(cfg, taskType), h, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(vad.TaskType, vad.NewHandler(&vad.Config{
		Timeout: workerTimeout(cfg, vad.TaskType),
	}, log).Handle)

	register(car.TaskType, car.NewHandler(&car.Config{
		Timeout: workerTimeout(cfg, car.TaskType),
	}, jobRepo, transport, catalog, log).Handle)

	register(uas.TaskType, uas.NewHandler(&uas.Config{
		Timeout: workerTimeout(cfg, uas.TaskType),
	}, appService, log).Handle)

	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		handler, err := sn.NewHandler(&sn.Config{
			EmailEnabled:  cfg.Notifications.Email.Enabled || cfg.Integrations.AWS.SES.Enabled,
			SMSEnabled:    cfg.Notifications.SMS.Enabled || cfg.Integrations.AWS.SNS.Enabled,
			FromEmail:     firstNonEmpty(cfg.Notifications.Email.FromEmail, cfg.Integrations.AWS.SES.FromEmail),
			AWSRegion:     cfg.Integrations.AWS.Region,
			PriorityTypes: cfg.Notifications.SMS.PriorityTypes,
			Timeout:       workerTimeout(cfg, sn.TaskType),
		}, feed, log)
		if err != nil {
			zapLog.Fatal("failed to create send-notification handler", zap.Error(err))
		}
		register(sn.TaskType, handler.Handle)
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- HTTP API ---
	sessions := api.NewSessionRegistry(config.GetDuration(cfg.Wizard.SessionTTL), log)
	sessions.StartSweeper(ctx, time.Minute)
	defer sessions.Stop()

	apiCfg := api.Config{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		RedirectDelay:  config.GetDuration(cfg.Wizard.RedirectDelay),
		SubmitTimeout:  config.GetDuration(cfg.Wizard.SubmitTimeout),
		MaxResumeBytes: cfg.Storage.MaxResumeBytes,
		PollInterval:   config.GetDuration(cfg.Notifications.PollInterval),
	}
	if local, ok := store.(*storage.LocalStore); ok {
		apiCfg.FilesDir = local.BaseDir()
		apiCfg.FilesPath = local.MountPath()
	}

	server := api.NewServer(apiCfg, api.Deps{
		Sessions:      sessions,
		KeySet:        realmKeys,
		Postings:      jobs.NewService(jobRepo, log),
		Jobs:          jobRepo,
		Transport:     transport,
		Catalog:       catalog,
		Applications:  appService,
		Notifications: feed,
		Subscriber:    feed,
		Checks:        readinessChecks(zeebeClient, pg, redis, esClient),
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: config.GetDuration(cfg.HTTP.ReadTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	zapLog.Info("Worker manager stopped")
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "local":
		return storage.NewLocal(cfg.LocalDir, cfg.PublicBaseURL), nil
	case "s3":
		return storage.NewS3(ctx, storage.S3Options{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
			SSE:           cfg.SSE,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func readinessChecks(client zbc.Client, pg *database.PostgresClient, redis *database.RedisClient, es *database.ElasticsearchClient) map[string]api.ReadinessCheck {
	checks := map[string]api.ReadinessCheck{
		"zeebe":    func(ctx context.Context) error { return camunda.HealthCheck(ctx, client) },
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}
	if es != nil {
		checks["elasticsearch"] = es.Ping
	}
	return checks
}

func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
