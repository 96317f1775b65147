package dto

import (
	"time"

	"gorm.io/datatypes"

	"timetodo_backend/internal/models"
)

// ============================================
// EVENTS
// ============================================

type TrackEventRequest struct {
	EventType     string         `json:"event_type" validate:"required,min=1,max=50"`
	EventCategory string         `json:"event_category" validate:"required,min=1,max=50"`
	EntityType    *string        `json:"entity_type,omitempty" validate:"omitempty,max=50"`
	EntityID      *string        `json:"entity_id,omitempty" validate:"omitempty,uuid"`
	EventData     datatypes.JSON `json:"event_data,omitempty"`
	SessionID     *string        `json:"session_id,omitempty" validate:"omitempty,max=100"`
}

// TrackEventInput - вход сервиса событий, UserID/IP/UA заполняет хендлер
type TrackEventInput struct {
	EventType     string
	EventCategory string
	UserID        *string
	EntityType    *string
	EntityID      *string
	EventData     datatypes.JSON
	SessionID     *string
	IPAddress     *string
	UserAgent     *string
}

type EventsQuery struct {
	UserID        string `form:"user_id" validate:"omitempty,uuid"`
	EventType     string `form:"event_type" validate:"omitempty,max=50"`
	EventCategory string `form:"event_category" validate:"omitempty,max=50"`
	EntityType    string `form:"entity_type" validate:"omitempty,max=50"`
	Limit         int    `form:"limit"`
}

// ============================================
// METRICS
// ============================================

type CalculateMetricsRequest struct {
	Date       string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PeriodType models.PeriodType `json:"period_type" validate:"omitempty,is-period-type"`
}

type MetricsQuery struct {
	PeriodType models.PeriodType `form:"period_type" validate:"omitempty,is-period-type"`
}

type SummaryQuery struct {
	Days int `form:"days" validate:"omitempty,min=1,max=365"`
}

type ProjectSummary struct {
	ProjectID       string                      `json:"project_id"`
	PeriodDays      int                         `json:"period_days"`
	TotalTasks      int64                       `json:"total_tasks"`
	StatusBreakdown map[models.TaskStatus]int64 `json:"status_breakdown"`
	CompletionRate  float64                     `json:"completion_rate"`
	ActiveUsers     int64                       `json:"active_users"`
	TimeLogged      int64                       `json:"time_logged"`
	RecentMetrics   []models.ProjectMetrics     `json:"recent_metrics"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

type UserSummary struct {
	UserID          string                      `json:"user_id"`
	PeriodDays      int                         `json:"period_days"`
	AssignedTasks   int64                       `json:"assigned_tasks"`
	StatusBreakdown map[models.TaskStatus]int64 `json:"status_breakdown"`
	CompletionRate  float64                     `json:"completion_rate"`
	ActiveProjects  int64                       `json:"active_projects"`
	TimeLogged      int64                       `json:"time_logged"`
	LoginCount      int64                       `json:"login_count"`
	RecentMetrics   []models.UserMetrics        `json:"recent_metrics"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}
