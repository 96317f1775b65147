package dto

import (
	"mime/multipart"
	"time"

	"timetodo_backend/internal/models"
)

// UploadFileRequest - multipart-форма загрузки
type UploadFileRequest struct {
	UserID    string                `json:"-" form:"-"`
	TaskID    *string               `form:"task_id" validate:"omitempty,uuid"`
	ProjectID *string               `form:"project_id" validate:"omitempty,uuid"`
	File      *multipart.FileHeader `json:"-" form:"-"`
}

type FileResponse struct {
	ID               string          `json:"id"`
	UploaderID       string          `json:"uploader_id"`
	TaskID           *string         `json:"task_id,omitempty"`
	ProjectID        *string         `json:"project_id,omitempty"`
	Filename         string          `json:"filename"`
	OriginalFilename string          `json:"original_filename"`
	URL              string          `json:"url"`
	FileSize         int64           `json:"file_size"`
	MimeType         string          `json:"mime_type"`
	FileType         models.FileType `json:"file_type"`
	Checksum         string          `json:"checksum"`
	CreatedAt        time.Time       `json:"created_at"`
}
