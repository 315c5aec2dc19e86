package main

import (
	"context"
	"log/slog"
	"os"

	"acmauth/config"
	"acmauth/internal/delivery"
	"acmauth/internal/delivery/http"
	"acmauth/internal/delivery/http/middleware"
	"acmauth/internal/delivery/http/router/handler"
	"acmauth/internal/domain/repository"
	"acmauth/internal/infra/auth"
	logs "acmauth/internal/infra/log"
	"acmauth/internal/infra/notification"
	"acmauth/internal/infra/persistence/gormrepo"
	"acmauth/internal/infra/persistence/memory"
	"acmauth/internal/usecase/impl"

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
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			newAccountRepository,
		),
	)
}

type accountRepositoryParams struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// newAccountRepository selects the account store by database.driver.
func newAccountRepository(params accountRepositoryParams) (repository.AccountRepository, error) {
	if params.Config.Database.Driver == config.DriverMemory {
		params.Logger.Warn("Using in-memory account store, accounts are lost on restart")

		return memory.NewAccountRepository(), nil
	}

	db, err := gormrepo.New(gormrepo.Params{
		Lifecycle: params.Lifecycle,
		Config:    params.Config,
		Logger:    params.Logger,
	})
	if err != nil {
		return nil, err
	}

	return gormrepo.NewAccountRepository(db), nil
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewPasswordHasher,
			auth.NewJWTService,
			notification.NewNotifier,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAccountService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAccountHandler,
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

// startServer launches every delivery once the other start hooks (database
// ping and migration) have completed.
func startServer(ctx context.Context, params startServerParams) {
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, delivery := range params.Deliveries {
				go func() {
					if err := delivery.Serve(ctx); err != nil {
						slog.Error("Failed to start server", slog.Any("error", err))
						os.Exit(1)
					}
				}()
			}

			return nil
		},
	})
}
