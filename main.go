package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/catalog"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/config"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/controller"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/dao"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/db"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/middleware"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/cache"
	pdp_dao "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/dao"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/engine"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/sqlast"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/router"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/service"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/telemetry"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceName := config.GetString("telemetry.serviceName")
	if config.GetBool("telemetry.enabled") {
		shutdown, err := telemetry.Init(ctx, serviceName)
		if err != nil {
			logger.Fatal("Failed to initialize telemetry", zap.Error(err))
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := shutdown(sctx); err != nil {
				logger.Error("Telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	lockSource := config.GetString("security.lockSource")
	auditRepository, err := audit.NewElasticsearchRepository(
		config.GetString("elasticsearch.url"),
		config.GetString("elasticsearch.index"),
	)
	if err != nil {
		logger.Fatal("Failed to create Elasticsearch client", zap.Error(err))
	}

	// Connect the stores in parallel. The pools outlive the group, so they
	// get the process context rather than the group's.
	var g errgroup.Group
	g.Go(func() error { return db.InitPostgres(ctx) })
	g.Go(db.InitRedis)
	if lockSource == config.LockSourceNeo4j {
		g.Go(func() error { return db.InitNeo4j(ctx) })
	}
	g.Go(func() error {
		pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
		defer pcancel()
		if err := auditRepository.Ping(pctx); err != nil {
			logger.Warn("Elasticsearch unavailable, decisions will not be indexed", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer db.ClosePostgres()
	defer db.CloseRedis()
	defer db.CloseNeo4j()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	auditService := audit.NewService(auditRepository)
	audit.Subscribe(eventBus, engine.EventSecurityDecision, auditService)
	util.NewNotificationService().Subscribe(eventBus, service.EventLockAdded, service.EventLockRemoved)

	// Identity tiers
	cacheService := util.NewCacheService()
	var replica cache.Replica
	if config.GetBool("redis.identityReplica") {
		replica = cacheService
	}
	identities := cache.NewStore(cache.NewIdentityCache(config.IdentityTTL()), replica)

	tokens, err := token.NewResolver(
		config.GetString("security.jws.key"),
		config.GetString("security.jwt.iss"),
		config.GetString("security.cookie"),
	)
	if err != nil {
		logger.Fatal("Failed to initialize token resolver", zap.Error(err))
	}

	// Query catalog
	var queries dao.Finder
	switch source := config.GetString("catalog.source"); source {
	case "file":
		fc, err := catalog.LoadFile(config.GetString("catalog.file"))
		if err != nil {
			logger.Fatal("Failed to load query catalog", zap.Error(err))
		}
		logger.Info("Loaded query catalog", zap.Int("queries", fc.Len()))
		if legacy := fc.Legacy(); len(legacy) > 0 && lockSource == config.LockSourceSpec {
			logger.Warn("Protected queries need a lock source and will be refused",
				zap.Strings("qnames", legacy))
		}
		queries = fc
	case "postgres":
		queries = dao.NewQueryDAO(db.PostgresPool)
	default:
		logger.Fatal("Unknown catalog source", zap.String("source", source))
	}

	executor := dao.NewQueryExecutor(db.PostgresPool, queries)

	var locks service.LockStore
	switch lockSource {
	case config.LockSourceSpec:
	case config.LockSourcePostgres:
		locks = pdp_dao.NewLockDAO(db.PostgresPool)
	case config.LockSourceNeo4j:
		locks = pdp_dao.NewGraphLockDAO(db.NewNeo4jRunner(db.Neo4jDriver))
	default:
		logger.Fatal("Unknown lock source", zap.String("lockSource", lockSource))
	}

	var lockRecords engine.LockSource
	if locks != nil {
		lockRecords = locks
	}
	gatekeeper := engine.NewGatekeeper(tokens, identities, lockRecords, executor, sqlast.NewCockroachParser(), eventBus)

	// Initialize services
	validationUtil := util.NewValidationUtil()
	services, err := service.InitializeServices(service.Dependencies{
		Catalog:     queries,
		Gatekeeper:  gatekeeper,
		Executor:    executor,
		Users:       dao.NewUserDAO(db.PostgresPool),
		Tokens:      tokens,
		Identities:  identities,
		TokenTTL:    config.GetDuration("security.jwt.ttl"),
		IdentityTTL: config.IdentityTTL(),
		Locks:       locks,
	}, validationUtil, eventBus)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Initialize controllers
	adminGuard := middleware.GrantAuth(tokens, identities,
		config.GetString("security.admin.app"),
		config.GetStringSlice("security.admin.keys")...)
	controllers := controller.InitializeControllers(services, auditService, tokens, adminGuard)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	r := router.SetupRouter(
		controllers,
		cacheService,
		config.GetInt("server.rateLimit.requests"),
		config.GetDuration("server.rateLimit.per"),
	)

	var handler http.Handler = r
	if config.GetBool("telemetry.enabled") {
		handler = telemetry.Handler(r, serviceName)
	}

	// Set up the server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("port", config.GetString("server.port")),
			zap.String("lockSource", lockSource))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The server has 5 seconds to finish in-flight requests and the event
	// bus the same budget to index pending decisions.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Drain(shutdownCtx); err != nil {
		logger.Warn("Event handlers still running at exit", zap.Error(err))
	}

	logger.Info("Server exiting")
}
