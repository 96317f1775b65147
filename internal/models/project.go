package models

import (
	"time"
)

// Проекты, задачи, спринты и учет времени.
// CRUD живет в другом сервисе, здесь таблицы только читаются движком метрик.

type Project struct {
	BaseModel
	Name    string `gorm:"not null" json:"name"`
	OwnerID string `gorm:"type:uuid;index" json:"owner_id"`
}

type Task struct {
	BaseModel
	ProjectID   string     `gorm:"type:uuid;not null;index" json:"project_id"`
	CreatorID   string     `gorm:"type:uuid;not null" json:"creator_id"`
	AssigneeID  *string    `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	Title       string     `gorm:"not null" json:"title"`
	Status      TaskStatus `gorm:"type:varchar(20);default:'todo'" json:"status"`
	StoryPoints *int       `json:"story_points,omitempty"`
}

type Sprint struct {
	BaseModel
	ProjectID     string       `gorm:"type:uuid;not null;index" json:"project_id"`
	Name          string       `gorm:"not null" json:"name"`
	Status        SprintStatus `gorm:"type:varchar(20);default:'planned'" json:"status"`
	StartDate     *time.Time   `json:"start_date,omitempty"`
	EndDate       *time.Time   `json:"end_date,omitempty"`
	ActualEndDate *time.Time   `json:"actual_end_date,omitempty"`

	Tasks []Task `gorm:"many2many:sprint_tasks;" json:"tasks,omitempty"`
}

// SprintTask - join-таблица sprint_tasks
type SprintTask struct {
	SprintID string `gorm:"type:uuid;primaryKey"`
	TaskID   string `gorm:"type:uuid;primaryKey"`
}

func (SprintTask) TableName() string {
	return "sprint_tasks"
}

type TimeEntry struct {
	BaseModel
	UserID    string     `gorm:"type:uuid;not null;index" json:"user_id"`
	TaskID    string     `gorm:"type:uuid;not null;index" json:"task_id"`
	ProjectID string     `gorm:"type:uuid;not null;index" json:"project_id"`
	StartTime *time.Time `gorm:"index" json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // секунды
}
