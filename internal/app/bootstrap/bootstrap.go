package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/chat"
	"chabbo/app/internal/config"
	apphttp "chabbo/app/internal/http"
	"chabbo/app/internal/storage"
	"chabbo/app/internal/storage/ephemeral"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	// EphemeralStore overrides the process-wide store for the ephemeral backend.
	EphemeralStore *ephemeral.Store
}

type Result struct {
	ChatService chat.Service
	HTTPServer  *apphttp.Server
	Backend     config.Backend
	Cleanup     func(context.Context) error
}

// Build opens the configured storage backend and composes the chat service and HTTP transport on top of it.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config

	opened, err := storage.Open(ctx, storage.Options{
		Backend:          cfg.Backend,
		DataDir:          cfg.DataDir,
		DBPath:           cfg.DBPath,
		RemoteProjectKey: cfg.RemoteProjectKey,
		RemoteDatabase:   cfg.RemoteDatabase,
		EphemeralStore:   deps.EphemeralStore,
		Logger:           deps.Logger,
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening corpus storage")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := opened.Close(ctx); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing storage after bootstrap failure")
		}
		return Result{}, wrapper
	}

	chatService, err := chat.NewService(ctx, chat.Options{
		Backend:   opened.Backend,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating chat service"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		ChatService: chatService,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             cfg.RateLimitBurst,
			RequestsPerSecond: cfg.RateLimitRPS,
			ClientTTL:         cfg.RateLimitClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	return Result{
		ChatService: chatService,
		HTTPServer:  httpServer,
		Backend:     opened.Kind,
		Cleanup:     opened.Close,
	}, nil
}
