package repositories

import (
	"errors"
	"time"

	"timetodo_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// LiveUsage - текущее потребление по живым (не удаленным) файлам
type LiveUsage struct {
	StorageBytes int64 `json:"storage_bytes"`
	FileCount    int64 `json:"file_count"`
}

type FileRepository interface {
	Create(db *gorm.DB, file *models.File) error
	FindByID(db *gorm.DB, id string) (*models.File, error)
	ListLive(db *gorm.DB, uploaderID string) ([]models.File, error)
	SoftDelete(db *gorm.DB, id string, at time.Time) error
	LiveUsage(db *gorm.DB, uploaderID string) (LiveUsage, error)
}

type FileRepositoryImpl struct{}

func NewFileRepository() FileRepository {
	return &FileRepositoryImpl{}
}

func (r *FileRepositoryImpl) Create(db *gorm.DB, file *models.File) error {
	return db.Create(file).Error
}

func (r *FileRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.File, error) {
	var file models.File
	err := db.First(&file, "id = ? AND is_deleted = ?", id, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (r *FileRepositoryImpl) ListLive(db *gorm.DB, uploaderID string) ([]models.File, error) {
	var files []models.File
	err := db.Where("uploader_id = ? AND is_deleted = ?", uploaderID, false).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

func (r *FileRepositoryImpl) SoftDelete(db *gorm.DB, id string, at time.Time) error {
	result := db.Model(&models.File{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *FileRepositoryImpl) LiveUsage(db *gorm.DB, uploaderID string) (LiveUsage, error) {
	var usage LiveUsage
	err := db.Model(&models.File{}).
		Select("COALESCE(SUM(file_size), 0) AS storage_bytes, COUNT(*) AS file_count").
		Where("uploader_id = ? AND is_deleted = ?", uploaderID, false).
		Scan(&usage).Error
	return usage, err
}
