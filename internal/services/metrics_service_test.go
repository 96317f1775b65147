package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetodo_backend/internal/models"
	"timetodo_backend/pkg/apperrors"
)

func (e *testEnv) seedProject() {
	alice, bob := "alice", "bob"
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	e.db.projects["p1"] = &models.Project{BaseModel: models.BaseModel{ID: "p1"}, Name: "Roadmap"}
	e.db.users[alice] = true
	e.db.tasks = []models.Task{
		{BaseModel: models.BaseModel{ID: "t1", CreatedAt: day.Add(9 * time.Hour)}, ProjectID: "p1", AssigneeID: &alice, Status: models.TaskStatusDone},
		{BaseModel: models.BaseModel{ID: "t2", CreatedAt: day.Add(11 * time.Hour)}, ProjectID: "p1", AssigneeID: &bob, Status: models.TaskStatusTodo},
		{BaseModel: models.BaseModel{ID: "t3", CreatedAt: day.AddDate(0, 0, -20)}, ProjectID: "p1", AssigneeID: &alice, Status: models.TaskStatusDone},
	}

	start1, start2 := day.Add(10*time.Hour), day.Add(12*time.Hour)
	e.db.entries = []models.TimeEntry{
		{UserID: alice, TaskID: "t1", ProjectID: "p1", StartTime: &start1, Duration: ptr(int64(3600))},
		{UserID: bob, TaskID: "t2", ProjectID: "p1", StartTime: &start2, Duration: ptr(int64(1800))},
		{UserID: bob, TaskID: "t2", ProjectID: "p1", StartTime: &start2},
	}
}

func TestCalculateProjectMetrics_DailyVersusWeekly(t *testing.T) {
	env := newTestEnv()
	env.seedProject()
	ctx := context.Background()

	daily, err := env.metrics.CalculateProjectMetrics(ctx, nil, "p1", testNow, models.PeriodDaily)
	require.NoError(t, err)
	weekly, err := env.metrics.CalculateProjectMetrics(ctx, nil, "p1", testNow, models.PeriodWeekly)
	require.NoError(t, err)

	assert.Equal(t, int64(2), daily.TotalTasks)
	assert.Equal(t, int64(3), weekly.TotalTasks)
	assert.Equal(t, int64(1), daily.CompletedTasks)
	assert.Equal(t, int64(2), weekly.CompletedTasks)
	assert.Equal(t, int64(2), daily.NewTasks)

	assert.Equal(t, int64(5400), daily.TotalTimeLogged)
	require.NotNil(t, daily.AverageTaskDuration)
	assert.Equal(t, int64(5400), *daily.AverageTaskDuration)
	assert.Equal(t, int64(2), daily.ActiveUsers)
	assert.Zero(t, daily.CommentsCount)
	assert.Zero(t, daily.FilesUploaded)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), weekly.PeriodStart)
	assert.Len(t, env.db.projectMetrics, 2)
}

func TestCalculateProjectMetrics_AverageNilWithoutCompletions(t *testing.T) {
	env := newTestEnv()
	env.seedProject()
	for i := range env.db.tasks {
		env.db.tasks[i].Status = models.TaskStatusInProgress
	}

	m, err := env.metrics.CalculateProjectMetrics(context.Background(), nil, "p1", testNow, models.PeriodDaily)

	require.NoError(t, err)
	assert.Nil(t, m.AverageTaskDuration)
	assert.Equal(t, int64(5400), m.TotalTimeLogged)
}

func TestCalculateProjectMetrics_EmptyProjectIsZero(t *testing.T) {
	env := newTestEnv()
	env.db.projects["p2"] = &models.Project{BaseModel: models.BaseModel{ID: "p2"}}

	m, err := env.metrics.CalculateProjectMetrics(context.Background(), nil, "p2", testNow, models.PeriodMonthly)

	require.NoError(t, err)
	assert.Zero(t, m.TotalTasks)
	assert.Zero(t, m.TotalTimeLogged)
	assert.Nil(t, m.AverageTaskDuration)
}

func TestCalculateProjectMetrics_Errors(t *testing.T) {
	env := newTestEnv()
	env.seedProject()
	ctx := context.Background()

	_, err := env.metrics.CalculateProjectMetrics(ctx, nil, "nope", testNow, models.PeriodDaily)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	assert.Equal(t, 404, appErr.HTTPCode)
	assert.Equal(t, "could not compute metrics for project nope", appErr.Message)

	_, err = env.metrics.CalculateProjectMetrics(ctx, nil, "p1", testNow, models.PeriodType("hourly"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Empty(t, env.db.projectMetrics)
}

func TestCalculateUserMetrics(t *testing.T) {
	env := newTestEnv()
	env.seedProject()
	ctx := context.Background()
	alice := "alice"

	for _, ts := range []time.Time{testNow.Add(-time.Hour), testNow.AddDate(0, 0, -1)} {
		env.db.events = append(env.db.events, models.AnalyticsEvent{
			EventType: models.EventLogin, EventCategory: "auth", UserID: &alice, Timestamp: ts,
		})
	}

	daily, err := env.metrics.CalculateUserMetrics(ctx, nil, alice, testNow, models.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(1), daily.TasksCompleted)
	assert.Equal(t, int64(1), daily.TasksCreated)
	assert.Equal(t, int64(3600), daily.TimeLogged)
	assert.Equal(t, int64(1), daily.LoginCount)
	assert.Equal(t, int64(1), daily.ProjectsActive)

	weekly, err := env.metrics.CalculateUserMetrics(ctx, nil, alice, testNow, models.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, int64(2), weekly.TasksCompleted)
	assert.Equal(t, int64(2), weekly.LoginCount)

	_, err = env.metrics.CalculateUserMetrics(ctx, nil, "ghost", testNow, models.PeriodDaily)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCalculateSprintMetrics_AppendsEveryCall(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)
	env.db.sprints["s1"] = &models.Sprint{
		BaseModel: models.BaseModel{ID: "s1"},
		StartDate: &start,
		EndDate:   &end,
		Tasks: []models.Task{
			{Status: models.TaskStatusTodo, StoryPoints: ptr(5)},
			{Status: models.TaskStatusInProgress, StoryPoints: ptr(3)},
		},
	}
	ctx := context.Background()

	first, err := env.metrics.CalculateSprintMetrics(ctx, nil, "s1")
	require.NoError(t, err)
	second, err := env.metrics.CalculateSprintMetrics(ctx, nil, "s1")
	require.NoError(t, err)

	assert.Nil(t, first.Velocity)
	assert.Equal(t, int64(8), first.PlannedStoryPoints)
	assert.Equal(t, int64(14), first.PlannedDuration)
	assert.Nil(t, first.ActualDuration)
	assert.Nil(t, first.OnTimeCompletion)
	assert.Equal(t, first.PlannedStoryPoints, second.PlannedStoryPoints)

	rows, err := env.metrics.ListSprintMetrics(ctx, nil, "s1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = env.metrics.CalculateSprintMetrics(ctx, nil, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListMetrics_RejectsInvertedRange(t *testing.T) {
	env := newTestEnv()
	from, to := testNow, testNow.Add(-time.Hour)

	_, err := env.metrics.ListProjectMetrics(context.Background(), nil, "p1", nil, &from, &to)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestProjectSummary(t *testing.T) {
	env := newTestEnv()
	env.seedProject()
	ctx := context.Background()

	_, err := env.metrics.CalculateProjectMetrics(ctx, nil, "p1", testNow, models.PeriodDaily)
	require.NoError(t, err)

	summary, err := env.metrics.ProjectSummary(ctx, nil, "p1", 0)

	require.NoError(t, err)
	assert.Equal(t, 30, summary.PeriodDays)
	assert.Equal(t, int64(3), summary.TotalTasks)
	assert.Equal(t, int64(2), summary.StatusBreakdown[models.TaskStatusDone])
	assert.InDelta(t, 66.67, summary.CompletionRate, 0.01)
	assert.Equal(t, int64(2), summary.ActiveUsers)
	assert.Len(t, summary.RecentMetrics, 1)

	_, err = env.metrics.ProjectSummary(ctx, nil, "p1", 400)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestUserSummary(t *testing.T) {
	env := newTestEnv()
	env.seedProject()

	summary, err := env.metrics.UserSummary(context.Background(), nil, "alice", 7)

	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.AssignedTasks)
	assert.Equal(t, float64(100), summary.CompletionRate)
	assert.Equal(t, int64(1), summary.ActiveProjects)
	assert.Equal(t, int64(3600), summary.TimeLogged)
	assert.Empty(t, summary.RecentMetrics)
}
