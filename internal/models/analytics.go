package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalyticsEvent - только добавление, без update/delete
type AnalyticsEvent struct {
	BaseModel
	EventType     string         `gorm:"type:varchar(50);not null;index" json:"event_type"`
	EventCategory string         `gorm:"type:varchar(50);not null;index" json:"event_category"`
	UserID        *string        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	EntityType    *string        `gorm:"type:varchar(50)" json:"entity_type,omitempty"`
	EntityID      *string        `gorm:"type:uuid" json:"entity_id,omitempty"`
	EventData     datatypes.JSON `gorm:"type:jsonb" json:"event_data,omitempty"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	SessionID     *string        `json:"session_id,omitempty"`
	IPAddress     *string        `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent     *string        `json:"user_agent,omitempty"`
}

// ProjectMetrics - снапшот. Каждый расчет добавляет новую строку.
type ProjectMetrics struct {
	BaseModel
	ProjectID           string     `gorm:"type:uuid;not null;index" json:"project_id"`
	Date                time.Time  `gorm:"not null;index" json:"date"`
	PeriodType          PeriodType `gorm:"type:varchar(20);not null" json:"period_type"`
	PeriodStart         time.Time  `json:"period_start"`
	PeriodEnd           time.Time  `json:"period_end"`
	TotalTasks          int64      `json:"total_tasks"`
	CompletedTasks      int64      `json:"completed_tasks"`
	NewTasks            int64      `json:"new_tasks"`
	TotalTimeLogged     int64      `json:"total_time_logged"`
	AverageTaskDuration *int64     `json:"average_task_duration"`
	ActiveUsers         int64      `json:"active_users"`
	CommentsCount       int64      `json:"comments_count"`
	FilesUploaded       int64      `json:"files_uploaded"`
}

type UserMetrics struct {
	BaseModel
	UserID              string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Date                time.Time      `gorm:"not null;index" json:"date"`
	PeriodType          PeriodType     `gorm:"type:varchar(20);not null" json:"period_type"`
	PeriodStart         time.Time      `json:"period_start"`
	PeriodEnd           time.Time      `json:"period_end"`
	TasksCompleted      int64          `json:"tasks_completed"`
	TasksCreated        int64          `json:"tasks_created"`
	TimeLogged          int64          `json:"time_logged"`
	LoginCount          int64          `json:"login_count"`
	CommentsPosted      int64          `json:"comments_posted"`
	FilesUploaded       int64          `json:"files_uploaded"`
	ProjectsActive      int64          `json:"projects_active"`
	SprintsParticipated int64          `json:"sprints_participated"`
	CustomMetrics       datatypes.JSON `gorm:"type:jsonb" json:"custom_metrics,omitempty"`
}

type SprintMetrics struct {
	BaseModel
	SprintID                  string         `gorm:"type:uuid;not null;index" json:"sprint_id"`
	PlannedStoryPoints        int64          `json:"planned_story_points"`
	CompletedStoryPoints      int64          `json:"completed_story_points"`
	Velocity                  *int64         `json:"velocity"`
	TotalTasks                int64          `json:"total_tasks"`
	CompletedTasks            int64          `json:"completed_tasks"`
	IncompleteTasks           int64          `json:"incomplete_tasks"`
	PlannedDuration           int64          `json:"planned_duration"`
	ActualDuration            *int64         `json:"actual_duration"`
	OnTimeCompletion          *bool          `json:"on_time_completion"`
	TeamSize                  int64          `json:"team_size"`
	AverageTaskCompletionTime *float64       `json:"average_task_completion_time"`
	BurndownData              datatypes.JSON `gorm:"type:jsonb" json:"burndown_data,omitempty"`
}
