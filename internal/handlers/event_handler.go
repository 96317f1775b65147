package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timetodo_backend/internal/auth"
	"timetodo_backend/internal/middleware"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/pkg/apperrors"
)

type EventHandler struct {
	*BaseHandler
	events services.EventService
}

func NewEventHandler(base *BaseHandler, events services.EventService) *EventHandler {
	return &EventHandler{
		BaseHandler: base,
		events:      events,
	}
}

func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	events := r.Group("/events")
	events.Use(g.Auth)
	{
		events.POST("", g.EventsRateLimit, h.TrackEvent)
		events.GET("", h.GetEvents)
	}
}

// TrackEvent - user_id, IP и User-Agent берутся из запроса, не из тела
func (h *EventHandler) TrackEvent(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.TrackEventRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	in := dto.TrackEventInput{
		EventType:     req.EventType,
		EventCategory: req.EventCategory,
		UserID:        &userID,
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		EventData:     req.EventData,
		SessionID:     req.SessionID,
	}
	if ip := c.ClientIP(); ip != "" {
		in.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		in.UserAgent = &ua
	}

	event, err := h.events.Track(c.Request.Context(), h.GetDB(c), in)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// GetEvents - чужие события видит только суперпользователь или роль с events:read:all
func (h *EventHandler) GetEvents(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.EventsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	from, err := ParseOptionalTime(c, "from")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	to, err := ParseOptionalTime(c, "to")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	filter := repositories.EventFilter{
		EventType:     optional(query.EventType),
		EventCategory: optional(query.EventCategory),
		EntityType:    optional(query.EntityType),
		From:          from,
		To:            to,
	}

	if auth.CanPerformAction(middleware.GetClaims(c), auth.PermEventsReadAll) {
		filter.UserID = optional(query.UserID)
	} else {
		if query.UserID != "" && query.UserID != userID {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			return
		}
		filter.UserID = &userID
	}

	events, err := h.events.Query(c.Request.Context(), h.GetDB(c), filter, query.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
