package handlers

import (
	"github.com/gin-gonic/gin"

	"timetodo_backend/internal/middleware"
)

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	HealthHandler       *HealthHandler
	SubscriptionHandler *SubscriptionHandler
	FileHandler         *FileHandler
	EventHandler        *EventHandler
	AnalyticsHandler    *AnalyticsHandler
}

// RouteRegistrar - хендлер, который сам вешает свои маршруты на /api/v1
type RouteRegistrar interface {
	RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards)
}

func (h *AppHandlers) Registrars() []RouteRegistrar {
	return []RouteRegistrar{
		h.SubscriptionHandler,
		h.FileHandler,
		h.EventHandler,
		h.AnalyticsHandler,
	}
}
