package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timetodo_backend/internal/handlers"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/middleware"
)

// Options - служебные маршруты вне /api/v1
type Options struct {
	// UploadsDir - каталог локального хранилища, пусто = не раздавать
	UploadsDir string
	UploadsURL string
}

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	guards *middleware.Guards,
	opts Options,
) {
	ginRouter.GET("/health", appHandlers.HealthHandler.Health)
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.UploadsDir != "" && opts.UploadsURL != "" {
		ginRouter.Static(opts.UploadsURL, opts.UploadsDir)
		logger.Info("Local uploads served", "url", opts.UploadsURL, "dir", opts.UploadsDir)
	}

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	for _, registrar := range appHandlers.Registrars() {
		registrar.RegisterRoutes(api, guards)
	}
}
