package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/pingbackhq/pingbacker/internal/config"
	"github.com/pingbackhq/pingbacker/internal/conversation"
	"github.com/pingbackhq/pingbacker/internal/db"
	"github.com/pingbackhq/pingbacker/internal/handlers"
	"github.com/pingbackhq/pingbacker/internal/ingest"
	"github.com/pingbackhq/pingbacker/internal/logger"
	"github.com/pingbackhq/pingbacker/internal/message"
	"github.com/pingbackhq/pingbacker/internal/reply"
	"github.com/pingbackhq/pingbacker/internal/server"
	"github.com/pingbackhq/pingbacker/internal/tenant"
	"github.com/pingbackhq/pingbacker/internal/whatsapp"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideTenantService,
			provideMessageStore,
			provideWindowBuilder,
			provideGenerator,
			provideWhatsAppClient,
			providePipeline,
			providePingHandler,
			provideWebhookHandler,
			provideAuthHandler,
			provideTenantHandler,
			provideServer,
		),
		fx.Invoke(
			startServer,
			drainPipelineOnStop,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

// provideDBConn migrates the schema, then opens the pool the stores share.
func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideTenantService(log *slog.Logger, pool *pgxpool.Pool) *tenant.Service {
	return tenant.NewService(log, pool)
}

func provideMessageStore(log *slog.Logger, pool *pgxpool.Pool) *message.Store {
	return message.NewStore(log, pool)
}

func provideWindowBuilder(cfg config.Config, store *message.Store) *conversation.WindowBuilder {
	return conversation.NewWindowBuilder(store, cfg.Chat.HistoryLimit, cfg.Chat.DefaultPersona)
}

func provideGenerator(log *slog.Logger, cfg config.Config) *reply.OpenAIGenerator {
	return reply.NewOpenAIGenerator(log, cfg.OpenAI)
}

func provideWhatsAppClient(log *slog.Logger, cfg config.Config) *whatsapp.Client {
	return whatsapp.NewClient(log, cfg.WhatsApp)
}

func providePipeline(
	log *slog.Logger,
	tenants *tenant.Service,
	store *message.Store,
	windows *conversation.WindowBuilder,
	generator *reply.OpenAIGenerator,
	client *whatsapp.Client,
) *ingest.Pipeline {
	return ingest.NewPipeline(log, tenants, store, windows, generator, client)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, pipeline *ingest.Pipeline) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, pipeline, cfg.WhatsApp.VerifyToken)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config) *handlers.AuthHandler {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		expiresIn = 24 * time.Hour
	}
	return handlers.NewAuthHandler(log, cfg.Auth.AdminSecret, cfg.Auth.JWTSecret, expiresIn)
}

func provideTenantHandler(log *slog.Logger, service *tenant.Service) *handlers.TenantHandler {
	return handlers.NewTenantHandler(log, service)
}

func provideServer(
	log *slog.Logger,
	cfg config.Config,
	pingHandler *handlers.PingHandler,
	webhookHandler *handlers.WebhookHandler,
	authHandler *handlers.AuthHandler,
	tenantHandler *handlers.TenantHandler,
) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, pingHandler, webhookHandler, authHandler, tenantHandler)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			log.Info("server started", slog.String("addr", cfg.Server.Addr))
			return nil
		},
	})
}

// drainPipelineOnStop joins in-flight reply tasks before the process exits,
// so shutdown does not silently drop replies that were already admitted.
func drainPipelineOnStop(lc fx.Lifecycle, log *slog.Logger, pipeline *ingest.Pipeline) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := pipeline.Close(ctx); err != nil {
				log.Warn("pipeline drain incomplete", slog.Any("error", err))
			}
			return nil
		},
	})
}
