// Package app 은 cmd 아래 프로세스들이 공유하는 의존성 조립 코드다.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"autoblog/cache"
	"autoblog/config"
	"autoblog/db"
	"autoblog/eventbus"
	"autoblog/events"
	"autoblog/generator"
	"autoblog/llm"
	"autoblog/logger"
	"autoblog/metrics"
	"autoblog/quota"
	"autoblog/repositories"
	"autoblog/scheduler"
	"autoblog/search"
	"autoblog/services"
)

// Options 는 프로세스마다 다른 부분이다.
type Options struct {
	// Source 는 발행 이벤트의 source 필드다.
	Source string
	// Index 는 검색 색인을 소유한 프로세스(api)만 넘긴다.
	Index *search.Index
	// Generator 가 false 면 LLM 클라이언트를 만들지 않는다.
	Generator bool
}

type Repos struct {
	Users     *repositories.UserRepository
	Topics    *repositories.TopicRepository
	Posts     *repositories.PostRepository
	Histories *repositories.GenerationHistoryRepository
	Settings  *repositories.SettingsRepository
	Sitemaps  *repositories.SitemapRepository
	AILogs    *repositories.AILogRepository
}

// App 은 조립된 서비스 묶음이다. Close 로 외부 연결을 정리한다.
type App struct {
	Cfg      config.AppConfig
	DB       *mongo.Database
	Redis    *redis.Client
	Bus      eventbus.EventBus
	Events   *events.Dispatcher
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
	Repos    Repos

	HostCache cache.HostCache

	Settings   *services.SettingsService
	Users      *services.UserService
	Topics     *services.TopicService
	Posts      *services.PostService
	Generation *services.GenerationService
	Domains    *services.DomainService
	Sitemaps   *services.SitemapService
	Admin      *services.AdminService
	Blog       *services.BlogService
	Runner     *scheduler.Runner
}

// New 는 설정을 읽고 Mongo/Redis/Kafka 에 연결한 뒤 서비스를 조립한다.
func New(ctx context.Context, cfg config.AppConfig, opts Options) (*App, error) {
	if err := db.Init(ctx, cfg.Mongo); err != nil {
		return nil, err
	}
	d := db.Database()
	if err := db.EnsureIndexes(ctx, d); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	a := &App{Cfg: cfg, DB: d}

	rdb, err := db.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Redis 는 선택 사항이라 프로세스 메모리 구현으로 대체한다.
		logger.Log.Warnf("redis unavailable, falling back to in-process cache: %v", err)
	}
	a.Redis = rdb

	if cfg.Kafka.Brokers != "" {
		if err := eventbus.EnsureAllTopics(cfg.Kafka.Brokers, cfg.Kafka.Partitions); err != nil {
			logger.Log.Errorf("failed to ensure eventbus topics: %v", err)
		}
	}
	bus, err := eventbus.New(cfg.Kafka.Brokers)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	a.Bus = bus
	a.Events = events.NewDispatcher(bus, opts.Source)

	a.Metrics = metrics.NewCollector()
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(a.Metrics, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.Repos = Repos{
		Users:     repositories.NewUserRepository(d),
		Topics:    repositories.NewTopicRepository(d),
		Posts:     repositories.NewPostRepository(d),
		Histories: repositories.NewGenerationHistoryRepository(d),
		Settings:  repositories.NewSettingsRepository(d),
		Sitemaps:  repositories.NewSitemapRepository(d),
		AILogs:    repositories.NewAILogRepository(d),
	}

	var lock cache.BatchLock
	if rdb != nil {
		a.HostCache = cache.NewRedisHostCache(rdb, cfg.Redis.HostTTL)
		lock = cache.NewRedisBatchLock(rdb, cfg.Redis.BatchTTL)
	} else {
		a.HostCache = cache.NewMemoryHostCache(cfg.Redis.HostTTL)
		lock = cache.NewLocalBatchLock()
	}

	// nil 포인터가 인터페이스에 담기지 않도록 색인이 있을 때만 넘긴다.
	var (
		indexer  services.PostIndexer
		searcher services.Searcher
	)
	if opts.Index != nil {
		indexer, searcher = opts.Index, opts.Index
	}

	slugger := generator.NewSlugger()
	a.Settings = services.NewSettingsService(a.Repos.Settings, cfg)
	a.Users = services.NewUserService(a.Repos.Users)
	a.Topics = services.NewTopicService(a.Repos.Topics, a.Repos.Posts)
	a.Posts = services.NewPostService(a.Repos.Posts, a.Events, indexer, slugger)
	a.Domains = services.NewDomainService(a.Repos.Users, cfg.Domain, cfg.Env,
		services.WithHostCache(a.HostCache),
		services.WithDomainEvents(a.Events),
		services.WithDomainMetrics(a.Metrics),
	)
	a.Sitemaps = services.NewSitemapService(a.Repos.Sitemaps, a.Repos.Posts, a.Repos.Users, a.Settings, a.Domains)
	a.Admin = services.NewAdminService(a.Repos.Users, a.Repos.Posts, a.Repos.Topics, a.Repos.Histories, a.Repos.AILogs)
	a.Blog = services.NewBlogService(a.Posts, a.Sitemaps, searcher)

	var gen services.DraftGenerator
	if opts.Generator {
		client, err := llm.New(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
		genOpts := []generator.Option{
			generator.WithQuota(quota.NewLimiterFromConfig(cfg.LLMQuota)),
			generator.WithAILogSink(a.Repos.AILogs),
			generator.WithMetrics(a.Metrics),
			generator.WithTimeout(cfg.LLM.Timeout),
			generator.WithRecentPosts(cfg.Generation.RecentPosts),
			generator.WithSlugger(slugger),
		}
		if cfg.Reference.Enabled {
			genOpts = append(genOpts, generator.WithReferences(generator.NewReferenceCollector(cfg.Reference)))
		}
		gen = generator.New(client, a.Repos.Posts, genOpts...)
		logger.InfoWithFields("llm client ready", logger.Fields{"provider": client.Provider(), "model": cfg.LLM.Model})
	}
	a.Generation = services.NewGenerationService(a.Repos.Topics, a.Repos.Histories, a.Posts, a.Settings, gen,
		services.WithBatchLock(lock),
		services.WithGenerationEvents(a.Events),
		services.WithGenerationMetrics(a.Metrics),
		services.WithConcurrency(cfg.Generation.MaxConcurrency),
	)
	a.Runner = scheduler.NewRunner(a.Repos.Users, a.Generation, a.Sitemaps)
	return a, nil
}

// Close 는 역순으로 연결을 닫는다.
func (a *App) Close(ctx context.Context) {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	db.Disconnect(ctx)
}
