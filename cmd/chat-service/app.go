package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"chatrelay/internal/bus"
	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/internal/notification"
	"chatrelay/internal/session"
	"chatrelay/pkg/bootstrap"
	"chatrelay/pkg/health"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/middleware"
	"chatrelay/pkg/ratelimit"
	"chatrelay/pkg/tracing"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	dbConnector *bootstrap.DatabaseConnector

	redis       *redis.Client
	mongoClient *mongo.Client
	eventBus    *bus.RedisBus
	archiver    *bus.Archiver
	relay       *chat.Relay
	dispatcher  *notification.Dispatcher

	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("chat-service")
	}
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, "chat-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	if a.config.MongoDB.URI != "" {
		initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		mongoClient, err := a.dbConnector.InitMongoDB(initCtx)
		if err != nil {
			a.logger.WarnwCtx(initCtx, "MongoDB connection failed, continuing without notification log", "error", err)
		} else {
			a.mongoClient = mongoClient
		}
	}

	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("chat-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.config.RateLimit.RPS,
			Burst:           a.config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	tz := a.config.History.Timezone
	if tz == "" {
		tz = constants.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("failed to load history timezone %q: %w", tz, err)
	}

	a.eventBus = bus.NewRedisBus(a.redis, a.logger)

	if a.config.Bus.Kafka.Enabled {
		a.archiver = bus.NewArchiver(a.config.Bus.Kafka, a.logger)
		a.logger.InfowCtx(context.Background(), "Kafka archiver initialized",
			"archive_topic", a.config.Bus.Kafka.ArchiveTopic,
			"dlq_topic", a.config.Bus.Kafka.DLQTopic,
		)
	}

	expiry := constants.HistoryExpiry
	if a.config.History.ExpiryDays > 0 {
		expiry = time.Duration(a.config.History.ExpiryDays) * 24 * time.Hour
	}

	var history chat.HistoryStore = chat.NewRedisHistoryStore(a.redis, a.config.History.Capacity, expiry, loc, a.logger)
	if a.config.CircuitBreaker.Enabled {
		history = chat.NewCircuitBreakerHistoryStore(history, a.config.CircuitBreaker)
		a.logger.InfowCtx(context.Background(), "Circuit breaker enabled for history store")
	}

	unread := chat.NewRedisUnreadCounter(a.redis)
	registry := chat.NewRegistry()

	filter, err := chat.NewFilter(a.config.Filter.Expressions, a.logger)
	if err != nil {
		return fmt.Errorf("failed to compile filter expressions: %w", err)
	}

	hub := notification.NewHub(a.logger)
	var notifLog notification.Log
	if a.mongoClient != nil {
		dbName := a.config.MongoDB.Database
		if dbName == "" {
			dbName = "chatrelay"
		}
		notifLog = notification.NewLog(a.mongoClient.Database(dbName))
	}
	a.dispatcher = notification.NewDispatcher(hub, notifLog,
		a.config.Notification.QueueSize, a.config.Notification.Workers, a.logger)

	var archiver chat.EnvelopeArchiver
	if a.archiver != nil {
		archiver = a.archiver
	}
	a.relay = chat.NewRelay(registry, history, unread, a.dispatcher, archiver, a.logger)

	subs := chat.NewSubscriptionManager(a.eventBus, a.logger)
	publisher := chat.NewPublisher(a.eventBus, history, filter, a.logger)
	svc := chat.NewService(publisher, subs, history, unread, registry, notifLog, loc, a.logger)

	chatHandler := chat.NewHandler(svc, a.logger)
	chatHandler.RegisterRoutes(router)

	sessionHandler := session.NewHandler(registry, subs, a.logger)
	sessionHandler.RegisterRoutes(router)

	notifHandler := notification.NewHandler(hub, subs, a.logger)
	notifHandler.RegisterRoutes(router)

	metrics.RegisterChatMetrics()
	metrics.RegisterNotificationMetrics()
	metrics.RegisterBusMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	if a.config.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.eventBus.Listen(gctx, a.relay.Handle); err != nil && gctx.Err() == nil {
			return fmt.Errorf("bus listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.dispatcher.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(gctx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bus close error: %w", err))
		}
	}

	if a.archiver != nil {
		if err := a.archiver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("archiver close error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(shutdownCtx, a.redis, a.mongoClient)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
