package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"timetodo_backend/internal/auth"
	"timetodo_backend/internal/middleware"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/pkg/apperrors"
)

type AnalyticsHandler struct {
	*BaseHandler
	metrics services.MetricsService
	now     func() time.Time
}

func NewAnalyticsHandler(base *BaseHandler, metrics services.MetricsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler: base,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers all analytics routes for Gin
func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	analytics := r.Group("/analytics")
	analytics.Use(g.Auth)
	compute := middleware.RequirePermission(auth.PermMetricsCompute)

	// Project analytics
	projects := analytics.Group("/projects/:projectId")
	{
		projects.POST("/metrics", compute, h.CalculateProjectMetrics)
		projects.GET("/metrics", h.GetProjectMetrics)
		projects.GET("/summary", h.GetProjectSummary)
	}

	// User analytics: расчет только для себя или суперпользователем,
	// чтение еще и с metrics:compute
	users := analytics.Group("/users/:userId")
	{
		users.POST("/metrics", h.CalculateUserMetrics)
		users.GET("/metrics", h.GetUserMetrics)
		users.GET("/summary", h.GetUserSummary)
	}

	// Sprint analytics
	sprints := analytics.Group("/sprints/:sprintId")
	{
		sprints.POST("/metrics", compute, h.CalculateSprintMetrics)
		sprints.GET("/metrics", h.GetSprintMetrics)
	}
}

// --- Project ---

func (h *AnalyticsHandler) CalculateProjectMetrics(c *gin.Context) {
	projectID, err := ParseUUIDParam(c, "projectId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	date, period, ok := h.bindCalculateRequest(c)
	if !ok {
		return
	}

	metrics, err := h.metrics.CalculateProjectMetrics(c.Request.Context(), h.GetDB(c), projectID, date, period)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, metrics)
}

func (h *AnalyticsHandler) GetProjectMetrics(c *gin.Context) {
	projectID, err := ParseUUIDParam(c, "projectId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	period, from, to, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	metrics, err := h.metrics.ListProjectMetrics(c.Request.Context(), h.GetDB(c), projectID, period, from, to)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *AnalyticsHandler) GetProjectSummary(c *gin.Context) {
	projectID, err := ParseUUIDParam(c, "projectId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	var query dto.SummaryQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	summary, err := h.metrics.ProjectSummary(c.Request.Context(), h.GetDB(c), projectID, query.Days)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- User ---

func (h *AnalyticsHandler) CalculateUserMetrics(c *gin.Context) {
	userID, err := ParseUUIDParam(c, "userId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if !auth.CanReadUser(middleware.GetClaims(c), userID) {
		apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
		return
	}
	date, period, ok := h.bindCalculateRequest(c)
	if !ok {
		return
	}

	metrics, err := h.metrics.CalculateUserMetrics(c.Request.Context(), h.GetDB(c), userID, date, period)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, metrics)
}

func (h *AnalyticsHandler) GetUserMetrics(c *gin.Context) {
	userID, ok := h.authorizeUserParam(c)
	if !ok {
		return
	}
	period, from, to, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	metrics, err := h.metrics.ListUserMetrics(c.Request.Context(), h.GetDB(c), userID, period, from, to)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *AnalyticsHandler) GetUserSummary(c *gin.Context) {
	userID, ok := h.authorizeUserParam(c)
	if !ok {
		return
	}
	var query dto.SummaryQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	summary, err := h.metrics.UserSummary(c.Request.Context(), h.GetDB(c), userID, query.Days)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- Sprint ---

func (h *AnalyticsHandler) CalculateSprintMetrics(c *gin.Context) {
	sprintID, err := ParseUUIDParam(c, "sprintId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	metrics, err := h.metrics.CalculateSprintMetrics(c.Request.Context(), h.GetDB(c), sprintID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, metrics)
}

func (h *AnalyticsHandler) GetSprintMetrics(c *gin.Context) {
	sprintID, err := ParseUUIDParam(c, "sprintId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	metrics, err := h.metrics.ListSprintMetrics(c.Request.Context(), h.GetDB(c), sprintID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// --- Helper methods ---

// bindCalculateRequest: тело необязательно, по умолчанию сегодня и daily
func (h *AnalyticsHandler) bindCalculateRequest(c *gin.Context) (time.Time, models.PeriodType, bool) {
	var req dto.CalculateMetricsRequest
	if c.Request.ContentLength != 0 {
		if !h.BindAndValidate_JSON(c, &req) {
			return time.Time{}, "", false
		}
	}

	date := h.now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewValidation("date", "date must be YYYY-MM-DD"))
			return time.Time{}, "", false
		}
		date = parsed
	}

	period := req.PeriodType
	if period == "" {
		period = models.PeriodDaily
	}
	return date, period, true
}

func (h *AnalyticsHandler) bindListQuery(c *gin.Context) (*models.PeriodType, *time.Time, *time.Time, bool) {
	var query dto.MetricsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return nil, nil, nil, false
	}

	from, err := ParseOptionalTime(c, "from")
	if err != nil {
		h.HandleServiceError(c, err)
		return nil, nil, nil, false
	}
	to, err := ParseOptionalTime(c, "to")
	if err != nil {
		h.HandleServiceError(c, err)
		return nil, nil, nil, false
	}

	var period *models.PeriodType
	if query.PeriodType != "" {
		period = &query.PeriodType
	}
	return period, from, to, true
}

func (h *AnalyticsHandler) authorizeUserParam(c *gin.Context) (string, bool) {
	userID, err := ParseUUIDParam(c, "userId")
	if err != nil {
		h.HandleServiceError(c, err)
		return "", false
	}
	claims := middleware.GetClaims(c)
	if !auth.CanReadUser(claims, userID) && !auth.CanPerformAction(claims, auth.PermMetricsCompute) {
		apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
		return "", false
	}
	return userID, true
}
