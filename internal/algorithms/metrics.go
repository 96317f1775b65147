package algorithms

import (
	"math"
	"time"

	"timetodo_backend/internal/models"
)

// ConsideredTasks отбирает задачи, по которым считаются total/completed.
//
// =====================================================================
// ВНИМАНИЕ: асимметрия сохранена намеренно.
// daily  - только задачи, созданные в окне;
// weekly / monthly - ВСЕ задачи проекта (пользователя), без фильтра по окну.
// Существующие дашборды и отчеты опираются на эти числа, не "чинить".
// =====================================================================
func ConsideredTasks(tasks []models.Task, w Window, period models.PeriodType) []models.Task {
	if period != models.PeriodDaily {
		return tasks
	}
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if w.Contains(t.CreatedAt) {
			out = append(out, t)
		}
	}
	return out
}

func CountDone(tasks []models.Task) int64 {
	var n int64
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone {
			n++
		}
	}
	return n
}

// CountCreatedIn - задачи, созданные в окне (new_tasks / tasks_created)
func CountCreatedIn(tasks []models.Task, w Window) int64 {
	var n int64
	for _, t := range tasks {
		if w.Contains(t.CreatedAt) {
			n++
		}
	}
	return n
}

// SumDurations суммирует только непустые длительности
func SumDurations(entries []models.TimeEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.Duration != nil {
			total += *e.Duration
		}
	}
	return total
}

// AverageDuration = total / completed в целых секундах, nil при нуле завершенных
func AverageDuration(total, completed int64) *int64 {
	if completed <= 0 {
		return nil
	}
	avg := total / completed
	return &avg
}

func DistinctUsers(entries []models.TimeEntry) int64 {
	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.UserID] = struct{}{}
	}
	return int64(len(seen))
}

func DistinctProjects(entries []models.TimeEntry) int64 {
	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.ProjectID] = struct{}{}
	}
	return int64(len(seen))
}

// DistinctAssignees - различные непустые исполнители задач
func DistinctAssignees(tasks []models.Task) int64 {
	seen := make(map[string]struct{})
	for _, t := range tasks {
		if t.AssigneeID != nil && *t.AssigneeID != "" {
			seen[*t.AssigneeID] = struct{}{}
		}
	}
	return int64(len(seen))
}

func DistinctTaskProjects(tasks []models.Task) int64 {
	seen := make(map[string]struct{})
	for _, t := range tasks {
		seen[t.ProjectID] = struct{}{}
	}
	return int64(len(seen))
}

// StatusBreakdown - количество задач по статусам
func StatusBreakdown(tasks []models.Task) map[models.TaskStatus]int64 {
	out := make(map[models.TaskStatus]int64)
	for _, t := range tasks {
		out[t.Status]++
	}
	return out
}

// CompletionRate в процентах, 0 для пустого списка
func CompletionRate(tasks []models.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	return float64(CountDone(tasks)) / float64(len(tasks)) * 100
}

// SprintFigures - показатели спринта за все время его жизни
type SprintFigures struct {
	PlannedStoryPoints        int64
	CompletedStoryPoints      int64
	Velocity                  *int64
	TotalTasks                int64
	CompletedTasks            int64
	IncompleteTasks           int64
	PlannedDuration           int64
	ActualDuration            *int64
	OnTimeCompletion          *bool
	TeamSize                  int64
	AverageTaskCompletionTime *float64
}

func SprintMetricsFor(sprint *models.Sprint, tasks []models.Task) SprintFigures {
	var f SprintFigures
	f.TotalTasks = int64(len(tasks))
	f.CompletedTasks = CountDone(tasks)
	f.IncompleteTasks = f.TotalTasks - f.CompletedTasks

	assignees := make(map[string]struct{})
	var completionDays []int64
	for _, t := range tasks {
		points := int64(0)
		if t.StoryPoints != nil {
			points = int64(*t.StoryPoints)
		}
		f.PlannedStoryPoints += points
		if t.Status == models.TaskStatusDone {
			f.CompletedStoryPoints += points
			if !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero() {
				completionDays = append(completionDays, wholeDays(t.UpdatedAt.Sub(t.CreatedAt)))
			}
		}
		if t.AssigneeID != nil && *t.AssigneeID != "" {
			assignees[*t.AssigneeID] = struct{}{}
		}
	}
	f.TeamSize = int64(len(assignees))

	if f.CompletedStoryPoints > 0 {
		v := f.CompletedStoryPoints
		f.Velocity = &v
	}

	if sprint.StartDate != nil && sprint.EndDate != nil {
		f.PlannedDuration = wholeDays(sprint.EndDate.Sub(*sprint.StartDate))
	}
	if sprint.ActualEndDate != nil && sprint.StartDate != nil {
		actual := wholeDays(sprint.ActualEndDate.Sub(*sprint.StartDate))
		onTime := actual <= f.PlannedDuration
		f.ActualDuration = &actual
		f.OnTimeCompletion = &onTime
	}

	if len(completionDays) > 0 {
		var sum int64
		for _, d := range completionDays {
			sum += d
		}
		avg := float64(sum) / float64(len(completionDays))
		f.AverageTaskCompletionTime = &avg
	}
	return f
}

// wholeDays - целые сутки с округлением вниз
func wholeDays(d time.Duration) int64 {
	return int64(math.Floor(d.Hours() / 24))
}
