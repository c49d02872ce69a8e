package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/imrob/vendas/internal/health"
	"github.com/imrob/vendas/internal/messaging/kafka"
	"github.com/imrob/vendas/internal/service/outbox"
	"github.com/imrob/vendas/internal/version"
)

// Config описывает настройки запуска приложения.
type Config struct {
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool
	SeedDemoData        bool

	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	OutboxMaxPending   int
}

// DefaultConfig возвращает значения по умолчанию: in-memory хранилище с
// демо-данными и HTTP-сервер метрик на :9090.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		SeedDemoData:        true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    100 * time.Millisecond,
		OutboxMaxPending:    1000,
	}
}

// ConfigFromEnv собирает конфигурацию из переменных окружения поверх
// значений по умолчанию. Постгрес включается наличием VENDAS_POSTGRES_DSN.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if addr := strings.TrimSpace(os.Getenv("VENDAS_METRICS_ADDR")); addr != "" {
		cfg.MetricsAddr = addr
	}
	if dsn := strings.TrimSpace(os.Getenv("VENDAS_POSTGRES_DSN")); dsn != "" {
		cfg.StorageDriver = StorageDriverPostgres
		cfg.PostgresDSN = dsn
		cfg.SeedDemoData = false
	}
	if v := strings.TrimSpace(os.Getenv("VENDAS_POSTGRES_AUTO_MIGRATE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("VENDAS_KAFKA_BROKERS"))

	if v := strings.TrimSpace(os.Getenv("VENDAS_OUTBOX_POLL_INTERVAL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("VENDAS_OUTBOX_BATCH_SIZE")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.OutboxBatchSize = parsed
		}
	}

	return cfg
}

// Run собирает зависимости и блокируется до отмены контекста либо падения
// HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	services := NewDependencies(deps.catalog, deps.repo, deps.outboxRepo, logger)

	// Outbox-релей имеет смысл только при настроенном Kafka.
	var workerDone chan struct{}
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(services.OutboxRepo, publisher,
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			worker.Run(ctx)
		}()
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.store != nil {
		store := deps.store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	srv, srvErr := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		shutdownHTTP(srv, logger)
		if workerDone != nil {
			<-workerDone
		}
		return ctx.Err()
	case err := <-srvErr:
		cancel()
		if workerDone != nil {
			<-workerDone
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics, /healthz и /livez.
func startMetricsServer(addr string, logger *log.Entry, healthHandler http.Handler) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.Handle("/readyz", healthHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
			errCh <- err
		}
	}()

	return srv, errCh
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
