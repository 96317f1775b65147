package repositories

import (
	"time"

	"timetodo_backend/internal/models"

	"gorm.io/gorm"
)

// EventFilter - фильтр выборки событий, пустые поля не применяются
type EventFilter struct {
	UserID        *string
	EventType     *string
	EventCategory *string
	EntityType    *string
	From          *time.Time
	To            *time.Time
}

type AnalyticsRepository interface {
	// AnalyticsEvent operations (только добавление)
	CreateEvent(db *gorm.DB, event *models.AnalyticsEvent) error
	FindEvents(db *gorm.DB, filter EventFilter, limit int) ([]models.AnalyticsEvent, error)
	CountUserEvents(db *gorm.DB, userID, eventType string, from, to time.Time) (int64, error)

	// Snapshot operations (каждый расчет - новая строка)
	CreateProjectMetrics(db *gorm.DB, m *models.ProjectMetrics) error
	CreateUserMetrics(db *gorm.DB, m *models.UserMetrics) error
	CreateSprintMetrics(db *gorm.DB, m *models.SprintMetrics) error
	FindProjectMetrics(db *gorm.DB, projectID string, period *models.PeriodType, from, to *time.Time) ([]models.ProjectMetrics, error)
	FindUserMetrics(db *gorm.DB, userID string, period *models.PeriodType, from, to *time.Time) ([]models.UserMetrics, error)
	FindSprintMetrics(db *gorm.DB, sprintID string) ([]models.SprintMetrics, error)
	RecentProjectMetrics(db *gorm.DB, projectID string, period models.PeriodType, limit int) ([]models.ProjectMetrics, error)
	RecentUserMetrics(db *gorm.DB, userID string, period models.PeriodType, limit int) ([]models.UserMetrics, error)
}

type AnalyticsRepositoryImpl struct{}

func NewAnalyticsRepository() AnalyticsRepository {
	return &AnalyticsRepositoryImpl{}
}

// =========================================================================
// События
// =========================================================================

func (r *AnalyticsRepositoryImpl) CreateEvent(db *gorm.DB, event *models.AnalyticsEvent) error {
	return db.Create(event).Error
}

func (r *AnalyticsRepositoryImpl) FindEvents(db *gorm.DB, filter EventFilter, limit int) ([]models.AnalyticsEvent, error) {
	var events []models.AnalyticsEvent
	query := db.Model(&models.AnalyticsEvent{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	if filter.EventCategory != nil {
		query = query.Where("event_category = ?", *filter.EventCategory)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp <= ?", *filter.To)
	}

	err := query.Order("timestamp DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *AnalyticsRepositoryImpl) CountUserEvents(db *gorm.DB, userID, eventType string, from, to time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.AnalyticsEvent{}).
		Where("user_id = ? AND event_type = ?", userID, eventType).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Count(&count).Error
	return count, err
}

// =========================================================================
// Снапшоты метрик
// =========================================================================

func (r *AnalyticsRepositoryImpl) CreateProjectMetrics(db *gorm.DB, m *models.ProjectMetrics) error {
	return db.Create(m).Error
}

func (r *AnalyticsRepositoryImpl) CreateUserMetrics(db *gorm.DB, m *models.UserMetrics) error {
	return db.Create(m).Error
}

func (r *AnalyticsRepositoryImpl) CreateSprintMetrics(db *gorm.DB, m *models.SprintMetrics) error {
	return db.Create(m).Error
}

func (r *AnalyticsRepositoryImpl) FindProjectMetrics(db *gorm.DB, projectID string, period *models.PeriodType, from, to *time.Time) ([]models.ProjectMetrics, error) {
	var rows []models.ProjectMetrics
	query := scopeRange(db.Where("project_id = ?", projectID), period, from, to)
	err := query.Order("date ASC").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *AnalyticsRepositoryImpl) FindUserMetrics(db *gorm.DB, userID string, period *models.PeriodType, from, to *time.Time) ([]models.UserMetrics, error) {
	var rows []models.UserMetrics
	query := scopeRange(db.Where("user_id = ?", userID), period, from, to)
	err := query.Order("date ASC").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *AnalyticsRepositoryImpl) FindSprintMetrics(db *gorm.DB, sprintID string) ([]models.SprintMetrics, error) {
	var rows []models.SprintMetrics
	err := db.Where("sprint_id = ?", sprintID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *AnalyticsRepositoryImpl) RecentProjectMetrics(db *gorm.DB, projectID string, period models.PeriodType, limit int) ([]models.ProjectMetrics, error) {
	var rows []models.ProjectMetrics
	err := db.Where("project_id = ? AND period_type = ?", projectID, period).
		Order("date DESC").Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *AnalyticsRepositoryImpl) RecentUserMetrics(db *gorm.DB, userID string, period models.PeriodType, limit int) ([]models.UserMetrics, error) {
	var rows []models.UserMetrics
	err := db.Where("user_id = ? AND period_type = ?", userID, period).
		Order("date DESC").Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func scopeRange(query *gorm.DB, period *models.PeriodType, from, to *time.Time) *gorm.DB {
	if period != nil {
		query = query.Where("period_type = ?", *period)
	}
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date <= ?", *to)
	}
	return query
}
