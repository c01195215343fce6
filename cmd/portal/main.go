package main

import (
	"context"
	"log/slog"
	"os"

	"portal/config"
	"portal/internal/delivery"
	"portal/internal/delivery/http"
	"portal/internal/delivery/http/middleware"
	"portal/internal/delivery/http/router/handler"
	"portal/internal/domain/service"
	"portal/internal/infra/api"
	"portal/internal/infra/identity/google"
	logs "portal/internal/infra/log"
	"portal/internal/infra/navigation"
	"portal/internal/infra/storage"
	"portal/internal/usecase"
	"portal/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			wireSessionExpiry,
			bootstrapSession,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		newCredentialStore,
		navigation.NewRecorder,
	)
}

// newCredentialStore picks the store matching the credential transport: the
// encrypted file store for bearer credentials, a process-local store in
// cookie-session mode where the backend cookie is the real credential.
func newCredentialStore(cfg *config.Config, logger *slog.Logger) (service.CredentialStore, error) {
	if cfg.API.CookieSession {
		return storage.NewMemoryStore(), nil
	}

	return storage.NewFileStore(cfg, logger)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			api.NewClient,
			google.New,
			// Interface bindings for the concrete adapters.
			func(c *api.Client) service.AuthGateway { return c },
			func(p *google.Provider) service.IdentityProvider { return p },
			func(p *google.Provider) handler.AssertionSetter { return p },
			func(r *navigation.Recorder) service.Navigator { return r },
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewOAuthBridge,
			impl.NewSessionController,
			impl.NewRecoveryService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewErrorMiddleware,
			middleware.NewRequestIDMiddleware,
			middleware.NewGuardMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewDashboardHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// wireSessionExpiry connects the transport's unrecoverable-401 signal to the
// session controller. Registered before bootstrap so no expiry can slip by.
func wireSessionExpiry(client *api.Client, session usecase.SessionUsecase) {
	client.OnSessionExpired(func() {
		session.Invalidate(context.Background())
	})
}

// bootstrapSession runs the startup validation sequence without blocking
// application start.
func bootstrapSession(ctx context.Context, session usecase.SessionUsecase) {
	go session.Bootstrap(ctx)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
