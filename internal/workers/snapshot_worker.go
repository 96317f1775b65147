package workers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
)

// DailyCalculator - то, что нужно воркеру от services.MetricsService
type DailyCalculator interface {
	CalculateProjectMetrics(ctx context.Context, db *gorm.DB, projectID string, date time.Time, period models.PeriodType) (*models.ProjectMetrics, error)
	CalculateUserMetrics(ctx context.Context, db *gorm.DB, userID string, date time.Time, period models.PeriodType) (*models.UserMetrics, error)
}

// TargetSource отдает id проектов и пользователей для ночных снимков
type TargetSource interface {
	ProjectIDs(db *gorm.DB) ([]string, error)
	UserIDs(db *gorm.DB) ([]string, error)
}

type gormTargets struct{}

func (gormTargets) ProjectIDs(db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.Model(&models.Project{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (gormTargets) UserIDs(db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.Model(&models.User{}).Where("is_active = ?", true).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// SnapshotWorker раз в сутки (после полуночи UTC) пишет daily-снимки за прошедший день
type SnapshotWorker struct {
	db      *gorm.DB
	metrics DailyCalculator
	targets TargetSource
	now     func() time.Time
}

func NewSnapshotWorker(db *gorm.DB, metrics DailyCalculator) *SnapshotWorker {
	return &SnapshotWorker{
		db:      db,
		metrics: metrics,
		targets: gormTargets{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run блокируется до отмены ctx
func (w *SnapshotWorker) Run(ctx context.Context) error {
	for {
		now := w.now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 5, 0, 0, time.UTC)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Snapshot worker stopped")
			return nil
		case <-timer.C:
			yesterday := next.AddDate(0, 0, -1)
			w.RunOnce(ctx, time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC))
		}
	}
}

// RunOnce считает снимки за date. Ошибка по одному объекту не останавливает остальные.
// Возвращает количество записанных снимков.
func (w *SnapshotWorker) RunOnce(ctx context.Context, date time.Time) int {
	ctx = logger.WithAttrs(ctx, "worker", "snapshot", "date", date.Format("2006-01-02"))
	db := w.db
	if db != nil {
		db = db.WithContext(ctx)
	}
	created := 0

	projectIDs, err := w.targets.ProjectIDs(db)
	if err != nil {
		logger.WorkerLog("snapshot", "list_projects", err)
	}
	for _, id := range projectIDs {
		if ctx.Err() != nil {
			return created
		}
		if _, err := w.metrics.CalculateProjectMetrics(ctx, db, id, date, models.PeriodDaily); err != nil {
			logger.WorkerLog("snapshot", "project_metrics", err, "project_id", id)
			continue
		}
		created++
	}

	userIDs, err := w.targets.UserIDs(db)
	if err != nil {
		logger.WorkerLog("snapshot", "list_users", err)
	}
	for _, id := range userIDs {
		if ctx.Err() != nil {
			return created
		}
		if _, err := w.metrics.CalculateUserMetrics(ctx, db, id, date, models.PeriodDaily); err != nil {
			logger.WorkerLog("snapshot", "user_metrics", err, "user_id", id)
			continue
		}
		created++
	}

	logger.WorkerLog("snapshot", "daily", nil, "date", date.Format("2006-01-02"), "created", created)
	return created
}
