package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/internal/telemetry"
	"timetodo_backend/pkg/apperrors"
)

const (
	defaultSummaryDays = 30
	summarySnapshots   = 7
)

// MetricsService считает снапшоты метрик. Каждый расчет добавляет строку,
// повторный расчет за тот же период не заменяет предыдущий.
type MetricsService interface {
	CalculateProjectMetrics(ctx context.Context, db *gorm.DB, projectID string, date time.Time, period models.PeriodType) (*models.ProjectMetrics, error)
	CalculateUserMetrics(ctx context.Context, db *gorm.DB, userID string, date time.Time, period models.PeriodType) (*models.UserMetrics, error)
	CalculateSprintMetrics(ctx context.Context, db *gorm.DB, sprintID string) (*models.SprintMetrics, error)

	ListProjectMetrics(ctx context.Context, db *gorm.DB, projectID string, period *models.PeriodType, from, to *time.Time) ([]models.ProjectMetrics, error)
	ListUserMetrics(ctx context.Context, db *gorm.DB, userID string, period *models.PeriodType, from, to *time.Time) ([]models.UserMetrics, error)
	ListSprintMetrics(ctx context.Context, db *gorm.DB, sprintID string) ([]models.SprintMetrics, error)

	ProjectSummary(ctx context.Context, db *gorm.DB, projectID string, days int) (*dto.ProjectSummary, error)
	UserSummary(ctx context.Context, db *gorm.DB, userID string, days int) (*dto.UserSummary, error)
}

type metricsService struct {
	projectRepo   repositories.ProjectRepository
	userRepo      repositories.UserRepository
	analyticsRepo repositories.AnalyticsRepository
	now           Clock
}

func NewMetricsService(
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	analyticsRepo repositories.AnalyticsRepository,
) MetricsService {
	return &metricsService{
		projectRepo:   projectRepo,
		userRepo:      userRepo,
		analyticsRepo: analyticsRepo,
		now:           systemClock,
	}
}

// ============================================
// РАСЧЕТ СНАПШОТОВ
// ============================================

func (s *metricsService) CalculateProjectMetrics(ctx context.Context, db *gorm.DB, projectID string, date time.Time, period models.PeriodType) (*models.ProjectMetrics, error) {
	fail := func(err error) (*models.ProjectMetrics, error) {
		return nil, apperrors.ErrMetricsCalculation("project", projectID, err)
	}

	window, err := s.window(date, period)
	if err != nil {
		return fail(err)
	}
	if _, err := s.projectRepo.FindProjectByID(db, projectID); err != nil {
		return fail(handleRepoError(err))
	}

	tasks, err := s.projectRepo.FindTasksByProject(db, projectID)
	if err != nil {
		return fail(apperrors.InternalError(err))
	}
	entries, err := s.projectRepo.FindProjectTimeEntries(db, projectID, window.Start, window.End)
	if err != nil {
		return fail(apperrors.InternalError(err))
	}

	considered := algorithms.ConsideredTasks(tasks, window, period)
	completed := algorithms.CountDone(considered)
	logged := algorithms.SumDurations(entries)

	m := &models.ProjectMetrics{
		ProjectID:           projectID,
		Date:                date,
		PeriodType:          period,
		PeriodStart:         window.Start,
		PeriodEnd:           window.End,
		TotalTasks:          int64(len(considered)),
		CompletedTasks:      completed,
		NewTasks:            algorithms.CountCreatedIn(tasks, window),
		TotalTimeLogged:     logged,
		AverageTaskDuration: algorithms.AverageDuration(logged, completed),
		ActiveUsers:         algorithms.DistinctUsers(entries),
		// комментарии и файлы к проекту пока не привязаны
		CommentsCount: 0,
		FilesUploaded: 0,
	}

	if err := s.analyticsRepo.CreateProjectMetrics(db, m); err != nil {
		return fail(apperrors.InternalError(err))
	}

	telemetry.SnapshotsCreated.WithLabelValues("project").Inc()
	logger.CtxDebug(ctx, "project metrics calculated", "project_id", projectID, "period", period)
	return m, nil
}

func (s *metricsService) CalculateUserMetrics(ctx context.Context, db *gorm.DB, userID string, date time.Time, period models.PeriodType) (*models.UserMetrics, error) {
	fail := func(err error) (*models.UserMetrics, error) {
		return nil, apperrors.ErrMetricsCalculation("user", userID, err)
	}

	window, err := s.window(date, period)
	if err != nil {
		return fail(err)
	}
	if err := s.ensureUser(db, userID); err != nil {
		return fail(err)
	}

	tasks, err := s.projectRepo.FindTasksByAssignee(db, userID)
	if err != nil {
		return fail(apperrors.InternalError(err))
	}
	entries, err := s.projectRepo.FindUserTimeEntries(db, userID, window.Start, window.End)
	if err != nil {
		return fail(apperrors.InternalError(err))
	}
	logins, err := s.analyticsRepo.CountUserEvents(db, userID, models.EventLogin, window.Start, window.End)
	if err != nil {
		return fail(apperrors.InternalError(err))
	}

	considered := algorithms.ConsideredTasks(tasks, window, period)

	m := &models.UserMetrics{
		UserID:         userID,
		Date:           date,
		PeriodType:     period,
		PeriodStart:    window.Start,
		PeriodEnd:      window.End,
		TasksCompleted: algorithms.CountDone(considered),
		TasksCreated:   algorithms.CountCreatedIn(tasks, window),
		TimeLogged:     algorithms.SumDurations(entries),
		LoginCount:     logins,
		ProjectsActive: algorithms.DistinctProjects(entries),
	}

	if err := s.analyticsRepo.CreateUserMetrics(db, m); err != nil {
		return fail(apperrors.InternalError(err))
	}

	telemetry.SnapshotsCreated.WithLabelValues("user").Inc()
	logger.CtxDebug(ctx, "user metrics calculated", "user_id", userID, "period", period)
	return m, nil
}

func (s *metricsService) CalculateSprintMetrics(ctx context.Context, db *gorm.DB, sprintID string) (*models.SprintMetrics, error) {
	sprint, err := s.projectRepo.FindSprintWithTasks(db, sprintID)
	if err != nil {
		return nil, apperrors.ErrMetricsCalculation("sprint", sprintID, handleRepoError(err))
	}

	f := algorithms.SprintMetricsFor(sprint, sprint.Tasks)
	m := &models.SprintMetrics{
		SprintID:                  sprintID,
		PlannedStoryPoints:        f.PlannedStoryPoints,
		CompletedStoryPoints:      f.CompletedStoryPoints,
		Velocity:                  f.Velocity,
		TotalTasks:                f.TotalTasks,
		CompletedTasks:            f.CompletedTasks,
		IncompleteTasks:           f.IncompleteTasks,
		PlannedDuration:           f.PlannedDuration,
		ActualDuration:            f.ActualDuration,
		OnTimeCompletion:          f.OnTimeCompletion,
		TeamSize:                  f.TeamSize,
		AverageTaskCompletionTime: f.AverageTaskCompletionTime,
	}

	if err := s.analyticsRepo.CreateSprintMetrics(db, m); err != nil {
		return nil, apperrors.ErrMetricsCalculation("sprint", sprintID, apperrors.InternalError(err))
	}

	telemetry.SnapshotsCreated.WithLabelValues("sprint").Inc()
	return m, nil
}

// ============================================
// ЧТЕНИЕ
// ============================================

func (s *metricsService) ListProjectMetrics(ctx context.Context, db *gorm.DB, projectID string, period *models.PeriodType, from, to *time.Time) ([]models.ProjectMetrics, error) {
	if err := validateRange(period, from, to); err != nil {
		return nil, err
	}
	rows, err := s.analyticsRepo.FindProjectMetrics(db, projectID, period, from, to)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return rows, nil
}

func (s *metricsService) ListUserMetrics(ctx context.Context, db *gorm.DB, userID string, period *models.PeriodType, from, to *time.Time) ([]models.UserMetrics, error) {
	if err := validateRange(period, from, to); err != nil {
		return nil, err
	}
	rows, err := s.analyticsRepo.FindUserMetrics(db, userID, period, from, to)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return rows, nil
}

func (s *metricsService) ListSprintMetrics(ctx context.Context, db *gorm.DB, sprintID string) ([]models.SprintMetrics, error) {
	rows, err := s.analyticsRepo.FindSprintMetrics(db, sprintID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return rows, nil
}

func (s *metricsService) ProjectSummary(ctx context.Context, db *gorm.DB, projectID string, days int) (*dto.ProjectSummary, error) {
	days, err := summaryDays(days)
	if err != nil {
		return nil, err
	}
	if _, err := s.projectRepo.FindProjectByID(db, projectID); err != nil {
		return nil, handleRepoError(err)
	}

	now := s.now()
	window := algorithms.LastDays(now, days)

	tasks, err := s.projectRepo.FindTasksByProject(db, projectID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	entries, err := s.projectRepo.FindProjectTimeEntries(db, projectID, window.Start, window.End)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	recent, err := s.analyticsRepo.RecentProjectMetrics(db, projectID, models.PeriodDaily, summarySnapshots)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	kept := recent[:0]
	for _, m := range recent {
		if !m.Date.Before(window.Start) {
			kept = append(kept, m)
		}
	}

	return &dto.ProjectSummary{
		ProjectID:       projectID,
		PeriodDays:      days,
		TotalTasks:      int64(len(tasks)),
		StatusBreakdown: algorithms.StatusBreakdown(tasks),
		CompletionRate:  algorithms.CompletionRate(tasks),
		ActiveUsers:     algorithms.DistinctAssignees(tasks),
		TimeLogged:      algorithms.SumDurations(entries),
		RecentMetrics:   kept,
		GeneratedAt:     now,
	}, nil
}

func (s *metricsService) UserSummary(ctx context.Context, db *gorm.DB, userID string, days int) (*dto.UserSummary, error) {
	days, err := summaryDays(days)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUser(db, userID); err != nil {
		return nil, err
	}

	now := s.now()
	window := algorithms.LastDays(now, days)

	tasks, err := s.projectRepo.FindTasksByAssignee(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	entries, err := s.projectRepo.FindUserTimeEntries(db, userID, window.Start, window.End)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	logins, err := s.analyticsRepo.CountUserEvents(db, userID, models.EventLogin, window.Start, window.End)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	recent, err := s.analyticsRepo.RecentUserMetrics(db, userID, models.PeriodDaily, summarySnapshots)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	kept := recent[:0]
	for _, m := range recent {
		if !m.Date.Before(window.Start) {
			kept = append(kept, m)
		}
	}

	return &dto.UserSummary{
		UserID:          userID,
		PeriodDays:      days,
		AssignedTasks:   int64(len(tasks)),
		StatusBreakdown: algorithms.StatusBreakdown(tasks),
		CompletionRate:  algorithms.CompletionRate(tasks),
		ActiveProjects:  algorithms.DistinctTaskProjects(tasks),
		TimeLogged:      algorithms.SumDurations(entries),
		LoginCount:      logins,
		RecentMetrics:   kept,
		GeneratedAt:     now,
	}, nil
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ МЕТОДЫ
// ============================================

func (s *metricsService) window(date time.Time, period models.PeriodType) (algorithms.Window, error) {
	if !period.IsValid() {
		return algorithms.Window{}, apperrors.NewValidation("period_type", "unsupported period type")
	}
	w, err := algorithms.PeriodWindow(date, period)
	if err != nil {
		return algorithms.Window{}, apperrors.NewValidation("period_type", err.Error())
	}
	return w, nil
}

func (s *metricsService) ensureUser(db *gorm.DB, userID string) error {
	exists, err := s.userRepo.Exists(db, userID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !exists {
		return apperrors.NewNotFound("user", "user not found")
	}
	return nil
}

func validateRange(period *models.PeriodType, from, to *time.Time) error {
	if period != nil && !period.IsValid() {
		return apperrors.NewValidation("period_type", "unsupported period type")
	}
	if from != nil && to != nil && from.After(*to) {
		return apperrors.NewValidation("from", "from must not be after to")
	}
	return nil
}

func summaryDays(days int) (int, error) {
	if days == 0 {
		return defaultSummaryDays, nil
	}
	if days < 1 || days > 365 {
		return 0, apperrors.NewValidation("days", "days must be between 1 and 365")
	}
	return days, nil
}
