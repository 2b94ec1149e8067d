// cmd/triage-manager/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/aws"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/database"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/observability"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/samsara"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/connector"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/classifier"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/gate"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/retriever"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/synthesizer"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/telemetry"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/triage/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting triage manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	metrics := observability.New(cfg.App.Name)
	defer metrics.Shutdown()

	tracing, err := observability.NewTracing(cfg.App.Name, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLogger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer tracing.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// External services the triage components depend on.
	completer := genai.NewClient(genai.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Timeout:    time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	}, log)

	fleet := samsara.NewClient(samsara.Config{
		BaseURL:  cfg.APIs.Samsara.BaseURL,
		APIToken: cfg.APIs.Samsara.APIToken,
		Timeout:  time.Duration(cfg.APIs.Samsara.Timeout) * time.Millisecond,
	}, log)

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLogger.Fatal("failed to create elasticsearch client", zap.Error(err))
	}
	waitForDependency(ctx, log, "elasticsearch", func() error { return es.Ping() })

	// The triage components and the state machine over them.
	engine := workflow.NewEngine(
		workflow.Config{MaxRevisions: cfg.Workflow.MaxRevisions},
		classifier.New(completer, log),
		retriever.New(retriever.Config{
			Index:    cfg.Database.Elasticsearch.Index,
			TopK:     cfg.Workflow.TopK,
			MinScore: cfg.Workflow.MinScore,
		}, es.Client, completer, log),
		telemetry.NewResolver(fleet, log),
		synthesizer.New(synthesizer.Config{
			MaxTokens:   cfg.APIs.GenAI.MaxTokens,
			Temperature: cfg.APIs.GenAI.Temperature,
		}, completer, log),
		gate.New(gate.Config{
			MinToneScore:   cfg.Workflow.MinToneScore,
			MinDraftLength: cfg.Workflow.MinDraftLength,
			MaxDraftLength: cfg.Workflow.MaxDraftLength,
		}, completer, log),
		metrics, tracing, log,
	)
	pool := workflow.NewPool(engine, cfg.Workflow.MaxConcurrency, log)

	// Optional connectors: each one only exists when configured.
	var store *connector.OutcomeStore
	if cfg.Database.Postgres.Host != "" {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLogger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer pg.Close()
		waitForDependency(ctx, log, "postgres", func() error { return pg.Ping(ctx) })
		store = connector.NewOutcomeStore(pg.DB, log)
	}

	var deduper *connector.Deduper
	if cfg.Database.Redis.Address != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLogger.Fatal("failed to create redis client", zap.Error(err))
		}
		defer rdb.Close()
		waitForDependency(ctx, log, "redis", func() error { return rdb.Ping(ctx) })
		deduper = connector.NewDeduper(rdb.Client, time.Duration(cfg.Workflow.DedupeTTLHours)*time.Hour, log)
	}

	var events *connector.EventPublisher
	if cfg.Events.Enabled {
		events = connector.NewEventPublisher(cfg.Events.Brokers, cfg.Events.Topic, log)
		defer events.Close()
	}

	var notifier *connector.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var email connector.EmailSender
		var sms connector.SMSSender
		if cfg.Notifications.Email.Enabled {
			sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLogger.Fatal("failed to create SES client", zap.Error(err))
			}
			email = sesClient
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLogger.Fatal("failed to create SNS client", zap.Error(err))
			}
			sms = snsClient
		}
		notifier = connector.NewNotifier(cfg.Notifications, email, sms, log)
	}

	server := NewServer(pool, store, deduper, events, notifier, log)

	ingestServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", map[string]interface{}{"addr": cfg.Server.MetricsAddr})
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("ingestion server listening", map[string]interface{}{"addr": cfg.Server.ListenAddr})
		if err := ingestServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("ingestion server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = ingestServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	pool.Wait()

	log.Info("triage manager stopped", nil)
}

// waitForDependency pings a backing service with backoff until it answers
// or the process is asked to stop. Startup order in compose environments is
// not guaranteed.
func waitForDependency(ctx context.Context, log logger.Logger, name string, ping func() error) {
	delay := time.Second
	for {
		err := ping()
		if err == nil {
			log.Info("dependency ready", map[string]interface{}{"dependency": name})
			return
		}
		log.Warn("dependency not ready, waiting", map[string]interface{}{
			"dependency": name,
			"error":      err.Error(),
			"retryIn":    delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
