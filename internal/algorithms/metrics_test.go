package algorithms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetodo_backend/internal/models"
)

var day = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

func task(status models.TaskStatus, created time.Time) models.Task {
	return models.Task{BaseModel: models.BaseModel{CreatedAt: created, UpdatedAt: created}, Status: status}
}

func ptr[T any](v T) *T { return &v }

func TestConsideredTasks_DailyWeeklyAsymmetry(t *testing.T) {
	tasks := []models.Task{
		task(models.TaskStatusDone, day.Add(9*time.Hour)),
		task(models.TaskStatusTodo, day.Add(10*time.Hour)),
		task(models.TaskStatusDone, day.AddDate(0, 0, -20)),
	}

	daily, err := PeriodWindow(day, models.PeriodDaily)
	require.NoError(t, err)
	weekly, err := PeriodWindow(day, models.PeriodWeekly)
	require.NoError(t, err)

	assert.Len(t, ConsideredTasks(tasks, daily, models.PeriodDaily), 2)
	assert.Len(t, ConsideredTasks(tasks, weekly, models.PeriodWeekly), 3)
	assert.Equal(t, int64(2), CountDone(ConsideredTasks(tasks, weekly, models.PeriodWeekly)))
	assert.Equal(t, int64(2), CountCreatedIn(tasks, weekly))
}

func TestSumDurations_SkipsNil(t *testing.T) {
	entries := []models.TimeEntry{
		{UserID: "u1", ProjectID: "p1", Duration: ptr(int64(3600))},
		{UserID: "u2", ProjectID: "p1", Duration: nil},
		{UserID: "u1", ProjectID: "p2", Duration: ptr(int64(1800))},
	}

	assert.Equal(t, int64(5400), SumDurations(entries))
	assert.Equal(t, int64(2), DistinctUsers(entries))
	assert.Equal(t, int64(2), DistinctProjects(entries))
}

func TestAverageDuration(t *testing.T) {
	assert.Nil(t, AverageDuration(7200, 0))
	assert.Equal(t, int64(3600), *AverageDuration(7200, 2))
	assert.Equal(t, int64(2333), *AverageDuration(7000, 3))
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(nil))
	tasks := []models.Task{task(models.TaskStatusDone, day), task(models.TaskStatusTodo, day), task(models.TaskStatusBlocked, day), task(models.TaskStatusDone, day)}
	assert.Equal(t, 50.0, CompletionRate(tasks))
	assert.Equal(t, map[models.TaskStatus]int64{models.TaskStatusDone: 2, models.TaskStatusTodo: 1, models.TaskStatusBlocked: 1}, StatusBreakdown(tasks))
}

func TestSprintMetricsFor(t *testing.T) {
	start := day
	end := day.AddDate(0, 0, 14)
	sprint := &models.Sprint{StartDate: &start, EndDate: &end}

	done := task(models.TaskStatusDone, day)
	done.UpdatedAt = day.AddDate(0, 0, 3).Add(5 * time.Hour)
	done.StoryPoints = ptr(5)
	done.AssigneeID = ptr("alice")

	open := task(models.TaskStatusInProgress, day)
	open.StoryPoints = ptr(3)
	open.AssigneeID = ptr("bob")

	noPoints := task(models.TaskStatusDone, day)
	noPoints.UpdatedAt = day.AddDate(0, 0, 1)
	noPoints.AssigneeID = ptr("alice")

	f := SprintMetricsFor(sprint, []models.Task{done, open, noPoints})

	assert.Equal(t, int64(8), f.PlannedStoryPoints)
	assert.Equal(t, int64(5), f.CompletedStoryPoints)
	require.NotNil(t, f.Velocity)
	assert.Equal(t, int64(5), *f.Velocity)
	assert.Equal(t, int64(3), f.TotalTasks)
	assert.Equal(t, int64(2), f.CompletedTasks)
	assert.Equal(t, int64(1), f.IncompleteTasks)
	assert.Equal(t, int64(14), f.PlannedDuration)
	assert.Nil(t, f.ActualDuration)
	assert.Nil(t, f.OnTimeCompletion)
	assert.Equal(t, int64(2), f.TeamSize)
	require.NotNil(t, f.AverageTaskCompletionTime)
	assert.Equal(t, 2.0, *f.AverageTaskCompletionTime)
}

func TestSprintMetricsFor_VelocityNilWithoutCompletedPoints(t *testing.T) {
	open := task(models.TaskStatusTodo, day)
	open.StoryPoints = ptr(8)

	f := SprintMetricsFor(&models.Sprint{}, []models.Task{open})

	assert.Nil(t, f.Velocity)
	assert.Equal(t, int64(0), f.PlannedDuration)
	assert.Nil(t, f.AverageTaskCompletionTime)
}

func TestSprintMetricsFor_OnTime(t *testing.T) {
	start := day
	end := day.AddDate(0, 0, 10)
	early := day.AddDate(0, 0, 9)
	late := day.AddDate(0, 0, 12)

	f := SprintMetricsFor(&models.Sprint{StartDate: &start, EndDate: &end, ActualEndDate: &early}, nil)
	require.NotNil(t, f.OnTimeCompletion)
	assert.True(t, *f.OnTimeCompletion)
	assert.Equal(t, int64(9), *f.ActualDuration)

	f = SprintMetricsFor(&models.Sprint{StartDate: &start, EndDate: &end, ActualEndDate: &late}, nil)
	assert.False(t, *f.OnTimeCompletion)
}

func TestDistinctAssigneesAndProjects(t *testing.T) {
	a, b := "u-1", "u-2"
	tasks := []models.Task{
		{ProjectID: "p-1", AssigneeID: &a},
		{ProjectID: "p-1", AssigneeID: &a},
		{ProjectID: "p-2", AssigneeID: &b},
		{ProjectID: "p-2", AssigneeID: ptr("")},
		{ProjectID: "p-3"},
	}

	assert.Equal(t, int64(2), DistinctAssignees(tasks))
	assert.Equal(t, int64(3), DistinctTaskProjects(tasks))
}
