// Package app wires configuration, storage, caching and services into one
// value shared by the HTTP server and the seed command.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"litrevu/internal/cache"
	"litrevu/internal/config"
	"litrevu/internal/database"
	"litrevu/internal/logger"
	"litrevu/internal/queue"
	"litrevu/internal/redis"
	"litrevu/internal/repository"
	"litrevu/internal/repository/memstore"
	"litrevu/internal/service"
	"litrevu/internal/worker"
)

// Repositories is one storage backend seen through the repository interfaces.
type Repositories struct {
	Tx            repository.Transactor
	Users         repository.UserRepository
	RefreshTokens repository.RefreshTokenRepository
	Follows       repository.FollowRepository
	Blocks        repository.BlockRepository
	Tickets       repository.TicketRepository
	Reviews       repository.ReviewRepository
}

// MemoryRepositories exposes a memory store as Repositories.
func MemoryRepositories(s *memstore.Store) Repositories {
	return Repositories{
		Tx:            s,
		Users:         s.Users(),
		RefreshTokens: s.RefreshTokens(),
		Follows:       s.Follows(),
		Blocks:        s.Blocks(),
		Tickets:       s.Tickets(),
		Reviews:       s.Reviews(),
	}
}

type App struct {
	Config *config.Config
	Repos  Repositories

	Users         *service.UserService
	Auth          *service.AuthService
	Relationships *service.RelationshipService
	Tickets       *service.TicketService
	Reviews       *service.ReviewService
	Feed          *service.FeedService

	redis   *redis.Client
	workers *worker.Manager
	closers []func() error
}

// New opens the configured backends and builds the services. Redis and
// media storage are optional; without them feeds are composed on every
// request and uploads are refused.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repos, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = repos

	var feedCache cache.FeedCache
	var publisher queue.Publisher
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		feedCache = cache.NewFeedCache(client.Client, cfg.FeedCacheTTL)
		publisher = queue.NewPublisher(client.Client)
		logger.Info("feed cache enabled", zap.Duration("ttl", cfg.FeedCacheTTL))
	} else {
		logger.Warn("REDIS_URL not set, feed cache and event stream disabled")
	}

	var media service.ImageStore
	if cfg.MediaEnabled() {
		ms, err := service.NewMediaService(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		media = ms
	} else {
		logger.Warn("R2 storage not configured, image uploads disabled")
	}

	notifier := service.NewFeedNotifier(feedCache, publisher)
	a.Users = service.NewUserService(repos.Users, media)
	a.Auth = service.NewAuthService(repos.RefreshTokens, cfg)
	a.Relationships = service.NewRelationshipService(repos.Tx, repos.Users, repos.Follows, repos.Blocks, notifier)
	a.Tickets = service.NewTicketService(repos.Tx, repos.Tickets, repos.Reviews, media, notifier)
	a.Reviews = service.NewReviewService(repos.Tx, repos.Tickets, repos.Reviews, a.Tickets, notifier)
	a.Feed = service.NewFeedService(repos.Follows, repos.Tickets, repos.Reviews, feedCache)

	if a.redis != nil {
		handler := worker.NewHandler(feedCache, a.Relationships)
		workerCfg := worker.DefaultManagerConfig()
		workerCfg.WorkerCount = cfg.WorkerCount
		a.workers = worker.NewManager(queue.NewConsumer(a.redis.Client), handler, workerCfg)
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (Repositories, error) {
	switch a.Config.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return MemoryRepositories(memstore.New()), nil

	case config.StoragePostgres:
		db, err := database.Connect(a.Config)
		if err != nil {
			return Repositories{}, err
		}
		a.closers = append(a.closers, db.Close)

		if a.Config.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				return Repositories{}, err
			}
		}
		return Repositories{
			Tx:            repository.NewTransactor(db),
			Users:         repository.NewUserRepository(db),
			RefreshTokens: repository.NewRefreshTokenRepository(db),
			Follows:       repository.NewFollowRepository(db),
			Blocks:        repository.NewBlockRepository(db),
			Tickets:       repository.NewTicketRepository(db),
			Reviews:       repository.NewReviewRepository(db),
		}, nil

	default:
		return Repositories{}, fmt.Errorf("unknown STORAGE %q (want %s or %s)", a.Config.Storage, config.StoragePostgres, config.StorageMemory)
	}
}

// StartWorkers launches the feed workers when the event stream is enabled.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.workers == nil {
		return nil
	}
	return a.workers.Start(ctx)
}

// Close stops the workers and releases every backend, newest first.
func (a *App) Close() {
	if a.workers != nil {
		a.workers.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
