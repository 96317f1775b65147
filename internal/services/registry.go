package services

import (
	"time"

	"timetodo_backend/internal/cache"
	"timetodo_backend/internal/messaging"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/storage"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	EntitlementService EntitlementService
	AddOnService       AddOnService
	UsageService       UsageService
	FileService        FileService
	MetricsService     MetricsService
	EventService       EventService
	AdvisorService     AdvisorService
}

// Dependencies - внешние зависимости сервисов
type Dependencies struct {
	Storage         storage.Storage
	LimitsCache     cache.LimitsCache
	LimitsTTL       time.Duration
	Publisher       messaging.Publisher
	EventRoutingKey string
	SignedURLTTL    time.Duration // 0 - отдавать прямые ссылки
}

// NewServiceContainer собирает сервисы поверх stateless-репозиториев
func NewServiceContainer(deps Dependencies) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()
	addOnRepo := repositories.NewAddOnRepository()
	usageRepo := repositories.NewUsageRepository()
	fileRepo := repositories.NewFileRepository()
	analyticsRepo := repositories.NewAnalyticsRepository()
	projectRepo := repositories.NewProjectRepository()

	entitlementService := NewEntitlementService(userRepo, subscriptionRepo, addOnRepo, deps.LimitsCache, deps.LimitsTTL)
	usageService := NewUsageService(entitlementService, subscriptionRepo, fileRepo, usageRepo)

	return &ServiceContainer{
		EntitlementService: entitlementService,
		AddOnService:       NewAddOnService(userRepo, subscriptionRepo, addOnRepo, entitlementService),
		UsageService:       usageService,
		FileService:        NewFileService(fileRepo, usageService, deps.Storage, WithSignedURLs(deps.SignedURLTTL)),
		MetricsService:     NewMetricsService(projectRepo, userRepo, analyticsRepo),
		EventService:       NewEventService(analyticsRepo, deps.Publisher, deps.EventRoutingKey),
		AdvisorService:     NewAdvisorService(entitlementService, usageService),
	}
}
