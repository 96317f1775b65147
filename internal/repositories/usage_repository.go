package repositories

import (
	"time"

	"timetodo_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageDelta - приращения дневного журнала
type UsageDelta struct {
	StorageUsed  int64
	FilesCount   int64
	APICalls     int64
	VideoUploads int64
	AudioUploads int64
}

type UsageRepository interface {
	// Increment - атомарный upsert строки (user_id, date)
	Increment(db *gorm.DB, userID string, date time.Time, delta UsageDelta) error
	FindRange(db *gorm.DB, userID string, from, to time.Time) ([]models.UsageTracker, error)
}

type UsageRepositoryImpl struct{}

func NewUsageRepository() UsageRepository {
	return &UsageRepositoryImpl{}
}

// Increment: один оператор INSERT ... ON CONFLICT DO UPDATE,
// параллельные приращения не теряются.
func (r *UsageRepositoryImpl) Increment(db *gorm.DB, userID string, date time.Time, delta UsageDelta) error {
	row := models.UsageTracker{
		UserID:       userID,
		Date:         LedgerDate(date),
		StorageUsed:  delta.StorageUsed,
		FilesCount:   delta.FilesCount,
		APICalls:     delta.APICalls,
		VideoUploads: delta.VideoUploads,
		AudioUploads: delta.AudioUploads,
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"storage_used":  gorm.Expr("usage_tracker.storage_used + EXCLUDED.storage_used"),
			"files_count":   gorm.Expr("usage_tracker.files_count + EXCLUDED.files_count"),
			"api_calls":     gorm.Expr("usage_tracker.api_calls + EXCLUDED.api_calls"),
			"video_uploads": gorm.Expr("usage_tracker.video_uploads + EXCLUDED.video_uploads"),
			"audio_uploads": gorm.Expr("usage_tracker.audio_uploads + EXCLUDED.audio_uploads"),
			"updated_at":    gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&row).Error
}

// FindRange - строки журнала за [from, to], новые первыми
func (r *UsageRepositoryImpl) FindRange(db *gorm.DB, userID string, from, to time.Time) ([]models.UsageTracker, error) {
	var rows []models.UsageTracker
	err := db.Where("user_id = ? AND date >= ? AND date <= ?", userID, LedgerDate(from), LedgerDate(to)).
		Order("date DESC").
		Find(&rows).Error
	return rows, err
}

// LedgerDate - календарный день в UTC, ключ журнала
func LedgerDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
