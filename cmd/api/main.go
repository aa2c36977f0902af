package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/engagement-hub/internal/config"
	"github.com/jwalitptl/engagement-hub/internal/dispatch"
	"github.com/jwalitptl/engagement-hub/internal/email"
	eventHandler "github.com/jwalitptl/engagement-hub/internal/handler/event"
	"github.com/jwalitptl/engagement-hub/internal/handler/health"
	notificationHandler "github.com/jwalitptl/engagement-hub/internal/handler/notification"
	preferenceHandler "github.com/jwalitptl/engagement-hub/internal/handler/preference"
	promHandler "github.com/jwalitptl/engagement-hub/internal/handler/prometheus"
	templateHandler "github.com/jwalitptl/engagement-hub/internal/handler/template"
	"github.com/jwalitptl/engagement-hub/internal/middleware"
	"github.com/jwalitptl/engagement-hub/internal/repository/cached"
	"github.com/jwalitptl/engagement-hub/internal/router"
	"github.com/jwalitptl/engagement-hub/internal/service/eventbus"
	"github.com/jwalitptl/engagement-hub/internal/service/notification"
	"github.com/jwalitptl/engagement-hub/internal/service/preference"
	templateService "github.com/jwalitptl/engagement-hub/internal/service/template"
	"github.com/jwalitptl/engagement-hub/internal/storage"
	"github.com/jwalitptl/engagement-hub/pkg/auth"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/messaging/redis"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
	"github.com/jwalitptl/engagement-hub/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log.ToLoggerConfig())
	gin.SetMode(gin.ReleaseMode)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("eventhub", registry)

	repos, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to open storage")
	}
	defer repos.Close()
	templates := cached.NewTemplateRepository(repos.Templates, cfg.TemplateCache.ToCacheConfig())

	checks := map[string]health.Check{"database": repos.Ping}

	listeners := event.NewListenerRegistry()
	var backend event.Backend
	switch cfg.Dispatch.Mode {
	case config.ModeQueue:
		if cfg.Database.Driver == config.DriverMemory {
			log.Warn("Queue dispatch with in-memory storage: workers will not see events logged by this process")
		}
		queue, err := redis.NewRedisQueue(cfg.Redis.ToBrokerConfig(), &log.ZL, m)
		if err != nil {
			log.Fatal(err, "Failed to connect to Redis")
		}
		defer queue.Close()
		checks["redis"] = queue.Ping
		backend = dispatch.NewQueueBackend(queue, cfg.Dispatch.Queue, listeners, log, m)
	default:
		backend = dispatch.NewSyncBackend(listeners, log, m)
	}

	bus := eventbus.NewBus(repos.Events, backend, log, m, eventbus.Config{EventTTL: cfg.Retention.EventTTL})

	var mailer email.Service
	if mailCfg := cfg.SMTP.ToMailerConfig(); mailCfg.Enabled() {
		mailer = email.NewSMTPService(mailCfg)
	} else {
		mailer = email.NewNoopService(log)
	}

	v := validator.New()
	notifier := notification.NewService(
		repos.Notifications,
		templates,
		repos.Preferences,
		repos.Directory,
		mailer,
		log,
		m,
		notification.Config{NotificationTTL: cfg.Retention.NotificationTTL},
	)
	if err := notifier.RegisterHandlers(listeners, bus); err != nil {
		log.Fatal(err, "Failed to register notification listeners")
	}

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		log.Fatal(err, "Failed to configure token validation")
	}

	routerConfig := router.RouterConfig{
		MetricsPath: cfg.Server.MetricsPath,
		CORSConfig:  middleware.DefaultCORSConfig(),
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		router.Handlers{
			Health:       health.NewHandler(checks),
			Events:       eventHandler.NewHandler(bus, repos.Events),
			Templates:    templateHandler.NewHandler(templateService.NewService(templates, v, log)),
			Notification: notificationHandler.NewHandler(notifier),
			Preference:   preferenceHandler.NewHandler(preference.NewService(repos.Preferences, v)),
		},
		promHandler.New(registry),
		log,
		routerConfig,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "dispatch_mode", cfg.Dispatch.Mode, "storage", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited properly")
}
