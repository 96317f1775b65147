package repositories

import (
	"errors"
	"time"

	"timetodo_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSprintNotFound  = errors.New("sprint not found")
)

// ProjectRepository - чтение проектов, задач, спринтов и учета времени для метрик
type ProjectRepository interface {
	FindProjectByID(db *gorm.DB, id string) (*models.Project, error)
	FindTasksByProject(db *gorm.DB, projectID string) ([]models.Task, error)
	FindTasksByAssignee(db *gorm.DB, userID string) ([]models.Task, error)
	FindSprintWithTasks(db *gorm.DB, sprintID string) (*models.Sprint, error)
	FindProjectTimeEntries(db *gorm.DB, projectID string, from, to time.Time) ([]models.TimeEntry, error)
	FindUserTimeEntries(db *gorm.DB, userID string, from, to time.Time) ([]models.TimeEntry, error)
}

type ProjectRepositoryImpl struct{}

func NewProjectRepository() ProjectRepository {
	return &ProjectRepositoryImpl{}
}

func (r *ProjectRepositoryImpl) FindProjectByID(db *gorm.DB, id string) (*models.Project, error) {
	var project models.Project
	err := db.First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepositoryImpl) FindTasksByProject(db *gorm.DB, projectID string) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("project_id = ?", projectID).Find(&tasks).Error
	return tasks, err
}

func (r *ProjectRepositoryImpl) FindTasksByAssignee(db *gorm.DB, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("assignee_id = ?", userID).Find(&tasks).Error
	return tasks, err
}

func (r *ProjectRepositoryImpl) FindSprintWithTasks(db *gorm.DB, sprintID string) (*models.Sprint, error) {
	var sprint models.Sprint
	err := db.Preload("Tasks").First(&sprint, "id = ?", sprintID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	return &sprint, nil
}

// FindProjectTimeEntries - записи, начатые в [from, to)
func (r *ProjectRepositoryImpl) FindProjectTimeEntries(db *gorm.DB, projectID string, from, to time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := db.Where("project_id = ? AND start_time >= ? AND start_time < ?", projectID, from, to).
		Find(&entries).Error
	return entries, err
}

func (r *ProjectRepositoryImpl) FindUserTimeEntries(db *gorm.DB, userID string, from, to time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := db.Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Find(&entries).Error
	return entries, err
}
