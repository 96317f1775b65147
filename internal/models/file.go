package models

import (
	"time"
)

type File struct {
	BaseModel
	UploaderID       string     `gorm:"type:uuid;not null;index" json:"uploader_id"`
	TaskID           *string    `gorm:"type:uuid;index" json:"task_id,omitempty"`
	ProjectID        *string    `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Filename         string     `gorm:"not null" json:"filename"`
	OriginalFilename string     `gorm:"not null" json:"original_filename"`
	FilePath         string     `gorm:"not null" json:"file_path"`
	FileSize         int64      `gorm:"not null" json:"file_size"`
	MimeType         string     `json:"mime_type"`
	FileType         FileType   `gorm:"type:varchar(20);not null" json:"file_type"`
	Checksum         string     `gorm:"type:varchar(64)" json:"checksum"`
	StorageProvider  string     `gorm:"default:'local'" json:"storage_provider"`
	IsDeleted        bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}
