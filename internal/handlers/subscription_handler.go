package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"timetodo_backend/internal/middleware"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/services/dto"
)

type SubscriptionHandler struct {
	*BaseHandler
	entitlements services.EntitlementService
	usage        services.UsageService
	addOns       services.AddOnService
	advisor      services.AdvisorService
}

func NewSubscriptionHandler(
	base *BaseHandler,
	entitlements services.EntitlementService,
	usage services.UsageService,
	addOns services.AddOnService,
	advisor services.AdvisorService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:  base,
		entitlements: entitlements,
		usage:        usage,
		addOns:       addOns,
		advisor:      advisor,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	// Public routes - каталог
	public := r.Group("/subscription")
	{
		public.GET("/plans", h.GetPlans)
		public.GET("/packages", h.GetPackages)
	}

	// Protected routes
	sub := r.Group("/subscription")
	sub.Use(g.Auth)
	{
		sub.GET("/my", h.GetMySubscription)
		sub.PUT("/my/plan", h.ChangePlan)
		sub.GET("/limits", g.SubscriptionHeaders, h.GetLimits)
		sub.GET("/usage", g.SubscriptionHeaders, h.GetUsage)
		sub.GET("/usage/report", h.GetUsageReport)
		sub.GET("/can-upload", g.SubscriptionHeaders, h.CanUpload)
		sub.GET("/upgrade-suggestions", h.GetUpgradeSuggestions)

		addons := sub.Group("/addons")
		{
			addons.GET("", h.GetMyAddOns)
			addons.POST("/:packageId/purchase", h.PurchaseAddOn)
			addons.PUT("/:packageId/activate", h.ActivateAddOn)
			addons.PUT("/:packageId/deactivate", h.DeactivateAddOn)
			addons.PUT("/:packageId/renew", h.RenewAddOn)
			addons.GET("/:packageId/usage", h.GetAddOnUsage)
		}
	}

	// Admin routes
	admin := r.Group("/admin/addons")
	admin.Use(g.Auth, g.Superuser)
	{
		admin.POST("/seed", h.SeedPackages)
	}
}

// --- Catalog ---

func (h *SubscriptionHandler) GetPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.entitlements.ListPlans())
}

func (h *SubscriptionHandler) GetPackages(c *gin.Context) {
	var query dto.PackagesQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	var addOnType *models.AddOnType
	if query.Type != "" {
		addOnType = &query.Type
	}

	packages, err := h.addOns.ListPackages(c.Request.Context(), h.GetDB(c), addOnType)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, packages)
}

// --- Subscription ---

func (h *SubscriptionHandler) GetMySubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	subscription, err := h.entitlements.GetOrCreateSubscription(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	subscription, err := h.entitlements.ChangePlan(c.Request.Context(), h.GetDB(c), userID, req.Plan)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func (h *SubscriptionHandler) GetLimits(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limits, err := h.entitlements.Resolve(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, limits)
}

// --- Usage ---

func (h *SubscriptionHandler) GetUsage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	usage, err := h.usage.CurrentUsage(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *SubscriptionHandler) GetUsageReport(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.UsageReportQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	report, err := h.usage.UsageReport(c.Request.Context(), h.GetDB(c), userID, query.Days)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CanUpload - отказ тоже 200, причина в теле
func (h *SubscriptionHandler) CanUpload(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.CanUploadQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	decision, err := h.usage.CanUpload(c.Request.Context(), h.GetDB(c), userID, query.Size, query.Type)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *SubscriptionHandler) GetUpgradeSuggestions(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	suggestions, err := h.advisor.Suggest(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

// --- Add-ons ---

func (h *SubscriptionHandler) GetMyAddOns(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	addOns, err := h.addOns.ListUserAddOns(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, addOns)
}

func (h *SubscriptionHandler) PurchaseAddOn(c *gin.Context) {
	h.runAddOnAction(c, http.StatusCreated, h.addOns.Purchase)
}

func (h *SubscriptionHandler) ActivateAddOn(c *gin.Context) {
	h.runAddOnAction(c, http.StatusOK, h.addOns.Activate)
}

func (h *SubscriptionHandler) DeactivateAddOn(c *gin.Context) {
	h.runAddOnAction(c, http.StatusOK, h.addOns.Deactivate)
}

func (h *SubscriptionHandler) RenewAddOn(c *gin.Context) {
	h.runAddOnAction(c, http.StatusOK, h.addOns.Renew)
}

func (h *SubscriptionHandler) GetAddOnUsage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	packageID, err := ParseUUIDParam(c, "packageId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	usage, err := h.addOns.PackageUsage(c.Request.Context(), h.GetDB(c), userID, packageID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *SubscriptionHandler) SeedPackages(c *gin.Context) {
	created, err := h.addOns.SeedDefaultPackages(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *SubscriptionHandler) runAddOnAction(
	c *gin.Context,
	status int,
	action func(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error),
) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	packageID, err := ParseUUIDParam(c, "packageId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	addOn, err := action(c.Request.Context(), h.GetDB(c), userID, packageID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(status, addOn)
}
