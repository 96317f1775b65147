package models

import (
	"time"
)

// UsageTracker - дневной журнал использования, одна строка на (user_id, date).
// Счетчики только растут: удаление файла журнал не трогает.
type UsageTracker struct {
	BaseModel
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_usage_user_date" json:"user_id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:idx_usage_user_date" json:"date"`
	StorageUsed   int64     `gorm:"default:0" json:"storage_used"`
	FilesCount    int64     `gorm:"default:0" json:"files_count"`
	ProjectsCount int64     `gorm:"default:0" json:"projects_count"`
	UsersCount    int64     `gorm:"default:0" json:"users_count"`
	APICalls      int64     `gorm:"column:api_calls;default:0" json:"api_calls"`
	VideoUploads  int64     `gorm:"default:0" json:"video_uploads"`
	AudioUploads  int64     `gorm:"default:0" json:"audio_uploads"`
}

// TableName указывает GORM имя таблицы
func (UsageTracker) TableName() string {
	return "usage_tracker"
}
