package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"

	catalogcache "zac/internal/catalog/cache"
	catalogclient "zac/internal/catalog/client"
	catalogmetrics "zac/internal/catalog/metrics"
	"zac/internal/catalog/static"
	"zac/internal/configuration/resolver"
	cfgstore "zac/internal/configuration/store"
	"zac/internal/platform/config"
	"zac/internal/platform/outbox"
	platformredis "zac/internal/platform/redis"
	"zac/internal/zaak/adapters"
	"zac/internal/zaak/instructions"
	zaakmetrics "zac/internal/zaak/metrics"
	"zac/internal/zaak/ports"
	"zac/internal/zaak/service"
	zaakstore "zac/internal/zaak/store"
)

// stores groups the persistence the process runs on.
type stores struct {
	cases          service.Store
	configurations resolver.TxStore
	outbox         outbox.Store
}

// buildStores uses Postgres when a database is configured and memory otherwise.
func buildStores(db *sql.DB) stores {
	if db == nil {
		ob := outbox.NewInMemory()
		return stores{
			cases:          zaakstore.NewInMemory(ob),
			configurations: cfgstore.NewInMemory(),
			outbox:         ob,
		}
	}
	return stores{
		cases:          zaakstore.NewPostgres(db),
		configurations: cfgstore.NewPostgres(db),
		outbox:         outbox.NewPostgres(db),
	}
}

// buildCatalog fronts the catalog API, or the YAML catalog, with the case-type cache.
func buildCatalog(cfg *config.Config, rdb *platformredis.Client, logger *slog.Logger) (*catalogcache.Catalog, error) {
	var upstream catalogcache.Upstream
	switch {
	case cfg.Catalog.BaseURL != "":
		session := catalogclient.NewTokenSession(cfg.Catalog.ClientID, cfg.Catalog.ClientSecret, 0)
		c, err := catalogclient.New(cfg.Catalog.BaseURL, session,
			catalogclient.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
			catalogclient.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		upstream = c
	case cfg.Catalog.File != "":
		c, err := static.Load(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		upstream = c
	default:
		return nil, fmt.Errorf("either CATALOG_BASE_URL or CATALOG_FILE must be set")
	}

	var backend catalogcache.Backend = catalogcache.NewMemoryBackend()
	if rdb != nil {
		backend = catalogcache.NewRedisBackend(rdb.Client)
	}
	return catalogcache.New(upstream, backend,
		catalogcache.WithTTL(cfg.Catalog.CacheTTL),
		catalogcache.WithLogger(logger),
		catalogcache.WithMetrics(catalogmetrics.New()),
	)
}

// collaborators are the task and decision adapters, falling back to local
// implementations when their APIs are not configured.
type collaborators struct {
	tasks     ports.OpenTaskProvider
	shifter   instructions.TaskDueDateShifter
	decisions ports.DecisionRegistry
}

func buildCollaborators(cfg *config.Config, logger *slog.Logger) (collaborators, error) {
	out := collaborators{
		tasks:     adapters.NoTasks{},
		shifter:   instructions.Logging{Logger: logger},
		decisions: adapters.NoDecisions{},
	}
	session := catalogclient.NewTokenSession(cfg.Catalog.ClientID, cfg.Catalog.ClientSecret, 0)
	if url := cfg.Collaborators.TasksBaseURL; url != "" {
		tc, err := adapters.NewTaskClient(url, session, adapters.WithLogger(logger))
		if err != nil {
			return collaborators{}, err
		}
		out.tasks, out.shifter = tc, tc
	}
	if url := cfg.Collaborators.DecisionsBaseURL; url != "" {
		dc, err := adapters.NewDecisionClient(url, session, adapters.WithLogger(logger))
		if err != nil {
			return collaborators{}, err
		}
		out.decisions = dc
	}
	return out, nil
}

// instructionQueue hands instructions to asynq when Redis is configured and
// executes them inline otherwise. The returned worker is nil in the inline case.
func instructionQueue(cfg *config.Config, executor *instructions.Executor, logger *slog.Logger) (ports.Dispatcher, *instructions.Worker, func(), error) {
	if cfg.Redis.URL == "" {
		return instructions.NewInline(executor, logger), nil, func() {}, nil
	}
	opt, err := instructions.RedisConnOpt(cfg.Redis.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	client := asynq.NewClient(opt)
	dispatcher, err := instructions.NewDispatcher(client,
		instructions.WithQueue(cfg.Instructions.Queue),
		instructions.WithMaxRetry(cfg.Instructions.MaxRetry),
		instructions.WithDispatcherLogger(logger),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	worker, err := instructions.NewWorker(opt, instructions.WorkerConfig{
		Queue:       cfg.Instructions.Queue,
		Concurrency: cfg.Instructions.Concurrency,
	}, executor, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	return dispatcher, worker, func() { _ = client.Close() }, nil
}

func buildExecutor(shifter instructions.TaskDueDateShifter, m *zaakmetrics.Metrics, logger *slog.Logger) (*instructions.Executor, error) {
	logging := instructions.Logging{Logger: logger}
	return instructions.NewExecutor(shifter, logging, logging,
		instructions.WithExecutorLogger(logger),
		instructions.WithExecutorMetrics(m),
	)
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*platformredis.Client, error) {
	rdb, err := platformredis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rdb, nil
}
