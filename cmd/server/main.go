// Command server runs the case lifecycle API together with its background
// workers: the outbox relay, the instruction queue, the catalog notification
// consumer and the configuration reconciler.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfghandler "zac/internal/configuration/handler"
	cfgmetrics "zac/internal/configuration/metrics"
	"zac/internal/configuration/notifications"
	"zac/internal/configuration/reconcile"
	"zac/internal/configuration/resolver"
	"zac/internal/platform/config"
	"zac/internal/platform/database"
	"zac/internal/platform/httpserver"
	"zac/internal/platform/kafka"
	"zac/internal/platform/logger"
	"zac/internal/platform/outbox"
	"zac/internal/zaak/adapters"
	zaakhandler "zac/internal/zaak/handler"
	zaakmetrics "zac/internal/zaak/metrics"
	"zac/internal/zaak/service"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogFormat, cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		if db, err = database.Open(ctx, cfg.Database); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	} else {
		log.Warn("DATABASE_URL is not set, using in-memory stores")
	}

	rdb, err := openRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	st := buildStores(db)
	catalog, err := buildCatalog(cfg, rdb, log)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	res, err := resolver.New(st.configurations, catalog,
		resolver.WithLogger(log),
		resolver.WithMetrics(cfgmetrics.New()),
	)
	if err != nil {
		return err
	}
	ingress, err := notifications.New(res, notifications.WithLogger(log), notifications.WithCache(catalog))
	if err != nil {
		return err
	}

	collab, err := buildCollaborators(cfg, log)
	if err != nil {
		return err
	}
	caseMetrics := zaakmetrics.New()
	executor, err := buildExecutor(collab.shifter, caseMetrics, log)
	if err != nil {
		return err
	}
	dispatcher, instructionWorker, closeQueue, err := instructionQueue(cfg, executor, log)
	if err != nil {
		return fmt.Errorf("instruction queue: %w", err)
	}
	defer closeQueue()

	svc, err := service.New(st.cases, service.Collaborators{
		Catalog:        catalog,
		Configurations: res,
		Permissions:    adapters.NewGroupPermissions(cfg.Auth.AdminGroup),
		Tasks:          collab.tasks,
		Decisions:      collab.decisions,
		Dispatcher:     dispatcher,
	}, service.WithLogger(log), service.WithMetrics(caseMetrics))
	if err != nil {
		return err
	}

	scheduler, err := reconcile.New(res, cfg.ReconcileSpec, reconcile.WithLogger(log), reconcile.WithRunOnStart())
	if err != nil {
		return err
	}

	publisher, closePublisher, err := eventPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()
	relay, err := outbox.NewWorker(st.outbox, publisher,
		outbox.WithInterval(cfg.Kafka.OutboxPollInterval),
		outbox.WithBatchSize(cfg.Kafka.OutboxBatchSize),
		outbox.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := newRouter(cfg, routes{
		cases:          zaakhandler.New(svc, log),
		configurations: cfghandler.New(res, ingress, log),
		db:             db,
		redis:          rdb,
	}, log)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(ctx, srv, shutdownGrace, log) })
	g.Go(func() error { return ignoreCanceled(relay.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(scheduler.Run(ctx)) })
	if instructionWorker != nil {
		g.Go(func() error { return ignoreCanceled(instructionWorker.Run(ctx)) })
	}
	if len(cfg.Kafka.Brokers) > 0 {
		g.Go(func() error { return consumeNotifications(ctx, cfg.Kafka, ingress, log) })
	}

	log.Info("zac started", "addr", cfg.Server.Addr)
	return g.Wait()
}

// eventPublisher relays outbox messages to Kafka, or to the log when no
// brokers are configured.
func eventPublisher(cfg *config.Config, log *slog.Logger) (outbox.Publisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS is not set, case events are only logged")
		return outbox.LogPublisher{Logger: log}, func() {}, nil
	}
	p, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.CaseEventsTopic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, p.Close, nil
}

func consumeNotifications(ctx context.Context, cfg config.KafkaConfig, ingress *notifications.Ingress, log *slog.Logger) error {
	if err := kafka.EnsureTopics(ctx, cfg.Brokers, 1, 1, cfg.CatalogTopic, cfg.CaseEventsTopic); err != nil {
		log.Warn("ensuring kafka topics failed", "error", err)
	}
	consumer, err := kafka.NewConsumer(cfg.Brokers, cfg.ConsumerGroup, []string{cfg.CatalogTopic},
		kafka.WithConsumerLogger(log))
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()
	return ignoreCanceled(consumer.Run(ctx, ingress.Record()))
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
