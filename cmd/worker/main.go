package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/engagement-hub/internal/config"
	"github.com/jwalitptl/engagement-hub/internal/dispatch"
	"github.com/jwalitptl/engagement-hub/internal/email"
	"github.com/jwalitptl/engagement-hub/internal/handler/health"
	promHandler "github.com/jwalitptl/engagement-hub/internal/handler/prometheus"
	"github.com/jwalitptl/engagement-hub/internal/middleware"
	"github.com/jwalitptl/engagement-hub/internal/repository/cached"
	"github.com/jwalitptl/engagement-hub/internal/service/notification"
	"github.com/jwalitptl/engagement-hub/internal/service/retention"
	"github.com/jwalitptl/engagement-hub/internal/storage"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/messaging/redis"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
	"github.com/jwalitptl/engagement-hub/pkg/worker"
)

// setupHealthCheck serves liveness, readiness and metrics for the worker.
func setupHealthCheck(port int, checks map[string]health.Check, registry *prometheus.Registry, log *logger.Logger) *http.Server {
	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	health.NewHandler(checks).RegisterRoutes(&engine.RouterGroup)
	engine.GET("/metrics", promHandler.New(registry).Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Health check server failed")
		}
	}()
	return srv
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log.ToLoggerConfig()).WithFields(map[string]interface{}{
		"worker_id": workerID(),
	})
	gin.SetMode(gin.ReleaseMode)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("eventhub_worker", registry)

	repos, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to open storage")
	}
	defer repos.Close()

	queue, err := redis.NewRedisQueue(cfg.Redis.ToBrokerConfig(), &log.ZL, m)
	if err != nil {
		log.Fatal(err, "Failed to connect to Redis")
	}
	defer queue.Close()

	var mailer email.Service
	if mailCfg := cfg.SMTP.ToMailerConfig(); mailCfg.Enabled() {
		mailer = email.NewSMTPService(mailCfg)
	} else {
		mailer = email.NewNoopService(log)
	}

	listeners := event.NewListenerRegistry()
	notifier := notification.NewService(
		repos.Notifications,
		cached.NewTemplateRepository(repos.Templates, cfg.TemplateCache.ToCacheConfig()),
		repos.Preferences,
		repos.Directory,
		mailer,
		log,
		m,
		notification.Config{NotificationTTL: cfg.Retention.NotificationTTL},
	)
	// The worker only resolves listener names; subscriptions live in the API.
	if err := notifier.RegisterHandlers(listeners, nil); err != nil {
		log.Fatal(err, "Failed to register notification listeners")
	}

	// Failures are reported the same way the publishing side reports them.
	reporter := dispatch.NewQueueBackend(queue, cfg.Dispatch.Queue, listeners, log, m)

	consumer := worker.NewTaskConsumer(
		queue,
		listeners,
		repos.Events,
		reporter,
		cfg.ToConsumerConfig(),
		log,
		m,
	)
	sweeper := worker.NewRetentionWorker(
		retention.NewSweeper(repos.Notifications, repos.Events, m),
		cfg.Retention.SweepInterval,
		log,
	)

	healthSrv := setupHealthCheck(cfg.Worker.HealthPort, map[string]health.Check{
		"database": repos.Ping,
		"redis":    queue.Ping,
	}, registry, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	log.Info("Worker started",
		"queue", cfg.Dispatch.Queue,
		"listeners", len(listeners.Names()),
		"concurrency", cfg.Worker.Concurrency)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consumer.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Health server forced to shutdown")
	}
	log.Info("Worker exited properly")
}
