//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"pasosd/internal"
	"pasosd/internal/catalog"
	"pasosd/internal/controllers"
	"pasosd/internal/providers"
	"pasosd/internal/refresh"
	"pasosd/internal/services"
	"pasosd/internal/structures"
	"pasosd/internal/upstream"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		catalog.NewCatalogProvider,
		upstream.NewHTTPFetcher,
		services.NewAggregator,
		services.NewSnapshotService,
		refresh.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil
}
