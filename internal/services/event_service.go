package services

import (
	"context"
	"unicode/utf8"

	"gorm.io/gorm"

	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/messaging"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/internal/telemetry"
	"timetodo_backend/pkg/apperrors"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
	maxEventFieldLen   = 50
)

// EventService - журнал аналитических событий, только добавление
type EventService interface {
	Track(ctx context.Context, db *gorm.DB, in dto.TrackEventInput) (*models.AnalyticsEvent, error)
	Query(ctx context.Context, db *gorm.DB, filter repositories.EventFilter, limit int) ([]models.AnalyticsEvent, error)
}

type eventService struct {
	analyticsRepo repositories.AnalyticsRepository
	publisher     messaging.Publisher
	routingKey    string
	now           Clock
}

func NewEventService(analyticsRepo repositories.AnalyticsRepository, publisher messaging.Publisher, routingKey string) EventService {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &eventService{
		analyticsRepo: analyticsRepo,
		publisher:     publisher,
		routingKey:    routingKey,
		now:           systemClock,
	}
}

func (s *eventService) Track(ctx context.Context, db *gorm.DB, in dto.TrackEventInput) (*models.AnalyticsEvent, error) {
	if n := utf8.RuneCountInString(in.EventType); n < 1 || n > maxEventFieldLen {
		return nil, apperrors.NewValidation("event_type", "event_type must be 1..50 characters")
	}
	if n := utf8.RuneCountInString(in.EventCategory); n < 1 || n > maxEventFieldLen {
		return nil, apperrors.NewValidation("event_category", "event_category must be 1..50 characters")
	}

	event := &models.AnalyticsEvent{
		EventType:     in.EventType,
		EventCategory: in.EventCategory,
		UserID:        in.UserID,
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		EventData:     in.EventData,
		Timestamp:     s.now(),
		SessionID:     in.SessionID,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
	}
	if err := s.analyticsRepo.CreateEvent(db, event); err != nil {
		return nil, apperrors.InternalError(err)
	}
	telemetry.EventsTracked.Inc()

	if err := s.publisher.Publish(ctx, s.routingKey, event); err != nil {
		logger.CtxWarn(ctx, "event publish failed", "event_id", event.ID, "error", err)
	}
	return event, nil
}

func (s *eventService) Query(ctx context.Context, db *gorm.DB, filter repositories.EventFilter, limit int) ([]models.AnalyticsEvent, error) {
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		return nil, apperrors.NewValidation("limit", "limit must not exceed 1000")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, apperrors.NewValidation("from", "from must not be after to")
	}

	events, err := s.analyticsRepo.FindEvents(db, filter, limit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return events, nil
}
