package internal

import (
	"net/http"

	"pasosd/internal/controllers"
	"pasosd/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/crossings", http.HandlerFunc(apiController.GetCrossings))
	// legacy path, still polled by older clients
	routers.Get("/scrapear", http.HandlerFunc(apiController.GetCrossings))
	return routers
}
