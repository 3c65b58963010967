package app

import (
	"context"
	"sync"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/auth"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/cache"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/community"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/config"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/feed"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/httpapi"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/interaction"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/mcp"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/memstore"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ranking"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ratelimit"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/scheduler"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/sources"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/workers"
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	FeedSvc        *feed.Service
	LiveFeeds      *feed.Hub
	CommunitySvc   *community.Service
	InteractionSvc *interaction.Service
	Runner         *workers.Runner
	Scheduler      *scheduler.Scheduler
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	MCPServer      *mcp.Server

	db             *database.DB
	listener       *database.InsertListener
	redisCache     *cache.RedisCache
	events         <-chan database.InsertEvent
	contentSink    workers.ContentSink
	metricsStore   httpapi.MetricsStore
	fetchLimiter   ratelimit.RateLimiter
	triggerLimiter httpapi.TriggerLimiter
	shutdownOnce   sync.Once
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))

	// Initialize cache and rate limiters
	app.Cache = app.initCache()

	// Initialize auth
	app.initAuth()

	// Initialize stores and the services reading them
	app.initStores()

	// Initialize ingestion
	app.initWorkers()

	// Initialize servers
	app.initServers()

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	switch {
	case a.Config.Server.IngestOnceMode:
		return a.runIngestOnce(ctx)
	case a.Config.Server.MCPMode:
		return a.runMCPMode(ctx)
	default:
		return a.runHTTPMode(ctx)
	}
}

// Shutdown gracefully shuts down the application. Later calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() { a.shutdown(ctx) })
	return nil
}

func (a *App) shutdown(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.listener != nil {
		if err := a.listener.Close(); err != nil {
			a.Logger.Error("Listener close error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	if mem, ok := a.Cache.(*cache.MemoryCache); ok {
		mem.Stop()
	}
	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}
}

func (a *App) initCache() cache.Cache {
	fetchInterval := a.Config.Server.RateLimitDur
	cooldown := a.Config.Server.TriggerCooldown

	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "griva:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			break
		}
		a.redisCache = redisCache
		// Replicas share per-host politeness and the manual trigger cooldown
		a.fetchLimiter = ratelimit.NewRedis(redisCache.Client(), "griva:ratelimit:host:", fetchInterval)
		a.triggerLimiter = ratelimit.NewRedis(redisCache.Client(), "griva:ratelimit:trigger:", cooldown)
		a.Logger.Info("Using Redis for distributed rate limiting")
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
	}

	a.fetchLimiter = ratelimit.New(fetchInterval)
	a.triggerLimiter = ratelimit.New(cooldown)
	return cache.NewMemory(a.Config.Cache.TTL)
}

func (a *App) initAuth() {
	if a.Config.Auth.JWTSecret == "" {
		a.Logger.Warn("AUTH_JWT_SECRET not set, mutations are disabled")
		a.AuthMiddleware = auth.NewMiddleware(nil)
		return
	}
	a.AuthService = auth.NewService(a.Config.Auth, a.Logger)
	a.AuthMiddleware = auth.NewMiddleware(a.AuthService)
	a.Logger.Info("Authentication service initialized")
}

func (a *App) initStores() {
	policy := ranking.Policy{Offset: a.Config.Ranking.Offset, Exponent: a.Config.Ranking.Exponent}
	feedOpts := feed.Options{
		PerKindLimit: a.Config.Feed.PerKindLimit,
		TotalLimit:   a.Config.Feed.TotalLimit,
		CacheTTL:     a.Config.Feed.CacheTTL,
	}

	if a.Config.Server.UseDatabase {
		if db := a.openDatabase(); db != nil {
			a.db = db
			contentStore := database.NewContentStore(db)
			metricsStore := database.NewMetricsStore(db)

			a.contentSink = contentStore
			a.metricsStore = metricsStore
			a.FeedSvc = feed.NewService(contentStore, a.Cache, feedOpts, a.Logger)
			a.CommunitySvc = community.NewService(database.NewPostStore(db), policy, a.Logger)
			a.InteractionSvc = interaction.NewService(database.NewInteractionStore(db), a.Logger)

			listener, err := database.NewInsertListener(db.Config(), a.Logger)
			if err != nil {
				a.Logger.Warn("Failed to listen for feed inserts, live feed will only show the seed", logging.WithField("error", err.Error()))
			} else {
				a.listener = listener
				a.events = listener.Events()
			}

			a.LiveFeeds = feed.NewHub(a.FeedSvc, a.Logger)
			return
		}
	}

	a.Logger.Warn("Using in-memory store, data is lost on restart")
	store := memstore.New()
	a.contentSink = store
	a.metricsStore = store
	a.events = store.Events()
	a.FeedSvc = feed.NewService(store, a.Cache, feedOpts, a.Logger)
	a.CommunitySvc = community.NewService(store, policy, a.Logger)
	a.InteractionSvc = interaction.NewService(store, a.Logger)
	a.LiveFeeds = feed.NewHub(a.FeedSvc, a.Logger)
}

func (a *App) openDatabase() *database.DB {
	dbConfig := database.DefaultConfig()
	dbConfig.Host = a.Config.Database.Host
	dbConfig.Port = a.Config.Database.Port
	dbConfig.User = a.Config.Database.User
	dbConfig.Password = a.Config.Database.Password
	dbConfig.Database = a.Config.Database.Database
	dbConfig.SSLMode = a.Config.Database.SSLMode

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL", logging.WithField("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	version, err := db.Migrate(ctx)
	if err != nil {
		a.Logger.Warn("Failed to run migrations", logging.WithField("error", err.Error()))
		db.Close()
		return nil
	}

	a.Logger.Info("Connected to PostgreSQL", logging.WithField("schema_version", version))
	return db
}

func (a *App) loadCatalog() *sources.Catalog {
	path := sources.FindCatalog(a.Config.Schedule.SourcesConfig)
	if path == "" {
		a.Logger.Info("No sources file found, using default sources")
		return sources.DefaultCatalog()
	}

	catalog, err := sources.LoadCatalog(path)
	if err != nil {
		a.Logger.Warn("Failed to load sources file, using defaults", logging.WithFields(map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		}))
		return sources.DefaultCatalog()
	}

	a.Logger.Info("Loaded sources configuration", logging.WithFields(map[string]interface{}{
		"path":   path,
		"news":   len(catalog.News),
		"papers": len(catalog.Papers),
	}))
	return catalog
}

func (a *App) initWorkers() {
	catalog := a.loadCatalog()
	fetcherConfig := sources.DefaultConfig()
	schedule := a.Config.Schedule

	a.Runner = workers.NewRunner(a.Logger,
		workers.NewNewsWorker(catalog.NewsFetchers(a.fetchLimiter, fetcherConfig.WithTimeout(schedule.NewsTimeout)), a.contentSink, a.Logger),
		workers.NewPaperWorker(catalog.PaperFetchers(a.fetchLimiter, fetcherConfig.WithTimeout(schedule.PaperTimeout)), a.contentSink, a.Logger),
		workers.NewModelWorker(catalog.ModelFetcher(a.fetchLimiter, fetcherConfig.WithTimeout(schedule.ModelTimeout)), a.contentSink, a.Logger),
		workers.NewMetricsWorker(a.metricsStore, a.Logger),
	)

	// New rows must show up in the merged feed on the next read
	a.Runner.OnComplete(func([]workers.Settlement) {
		a.FeedSvc.Invalidate()
	})

	a.Scheduler = scheduler.New(a.Runner, schedule.Interval, a.Logger)
}

func (a *App) initServers() {
	a.HTTPServer = httpapi.New(httpapi.Deps{
		Feed:           a.FeedSvc,
		Live:           a.LiveFeeds,
		Community:      a.CommunitySvc,
		Interactions:   a.InteractionSvc,
		Runner:         a.Runner,
		Scheduler:      a.Scheduler,
		Metrics:        a.metricsStore,
		AuthMiddleware: a.AuthMiddleware,
		Limiter:        a.triggerLimiter,
		CronSecret:     a.Config.Server.CronSecret,
	}, a.Logger)

	mcpHandler := mcp.NewHandler(a.FeedSvc, a.CommunitySvc, a.Runner, a.Scheduler, a.Logger)
	a.MCPServer = mcp.NewServer(mcpHandler, a.Logger)
}

func (a *App) startLiveFeeds(ctx context.Context) {
	if a.events == nil {
		return
	}
	go a.LiveFeeds.Run(ctx, a.events)
}

func (a *App) runIngestOnce(ctx context.Context) error {
	a.Logger.Info("Running all ingestion workers once")

	summary := workers.Summarize(a.Runner.RunAll(ctx))
	a.Logger.Info("Ingestion complete", logging.WithFields(map[string]interface{}{
		"news":   summary.Ingested.News,
		"papers": summary.Ingested.Papers,
		"models": summary.Ingested.Models,
		"errors": len(summary.Errors),
	}))
	for _, e := range summary.Errors {
		a.Logger.Warn("Ingestion error", logging.WithField("error", e))
	}
	return nil
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")
	a.startLiveFeeds(ctx)
	return a.MCPServer.Run(ctx)
}

func (a *App) runHTTPMode(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	a.startLiveFeeds(ctx)

	if a.Config.Schedule.Enabled {
		a.Scheduler.Start(ctx)
	} else {
		a.Logger.Info("Scheduled ingestion disabled")
	}

	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}
