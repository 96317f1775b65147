package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/internal/storage"
	"timetodo_backend/internal/telemetry"
	"timetodo_backend/pkg/apperrors"
)

type FileService interface {
	Upload(ctx context.Context, db *gorm.DB, req *dto.UploadFileRequest) (*dto.FileResponse, error)
	List(ctx context.Context, db *gorm.DB, userID string) ([]dto.FileResponse, error)
	Delete(ctx context.Context, db *gorm.DB, userID, fileID string) error
}

type fileService struct {
	fileRepo repositories.FileRepository
	usage    UsageService
	storage  storage.Storage
	now      Clock

	signedTTL time.Duration
}

type FileServiceOption func(*fileService)

// WithSignedURLs включает подписанные ссылки с заданным сроком жизни
func WithSignedURLs(ttl time.Duration) FileServiceOption {
	return func(s *fileService) { s.signedTTL = ttl }
}

func NewFileService(fileRepo repositories.FileRepository, usage UsageService, store storage.Storage, opts ...FileServiceOption) FileService {
	s := &fileService{
		fileRepo: fileRepo,
		usage:    usage,
		storage:  store,
		now:      systemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================
// ОСНОВНЫЕ МЕТОДЫ
// ============================================

func (s *fileService) Upload(ctx context.Context, db *gorm.DB, req *dto.UploadFileRequest) (*dto.FileResponse, error) {
	if req.File == nil {
		return nil, apperrors.NewValidation("file", "file is required")
	}
	if req.File.Size < 0 {
		return nil, apperrors.NewValidation("file", "invalid file size")
	}

	mimeType := req.File.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = getMimeTypeFromFilename(req.File.Filename)
	}
	fileType := getFileTypeFromMIME(mimeType)

	src, err := req.File.Open()
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("failed to open uploaded file: %w", err))
	}
	defer src.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, src); err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("failed to read uploaded file: %w", err))
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, apperrors.InternalError(err)
	}

	now := s.now()
	ext := strings.ToLower(filepath.Ext(req.File.Filename))
	name := generateSecureRandomString(16) + ext

	file := &models.File{
		BaseModel:        models.BaseModel{ID: uuid.NewString()},
		UploaderID:       req.UserID,
		TaskID:           req.TaskID,
		ProjectID:        req.ProjectID,
		Filename:         name,
		OriginalFilename: filepath.Base(req.File.Filename),
		FilePath:         fmt.Sprintf("%s/%s/%s", req.UserID, now.Format("2006/01"), name),
		FileSize:         req.File.Size,
		MimeType:         mimeType,
		FileType:         fileType,
		Checksum:         hex.EncodeToString(hash.Sum(nil)),
		StorageProvider:  s.storage.Provider(),
	}

	decision, err := s.usage.ReserveUpload(ctx, db, req.UserID, file.FileSize, fileType, func(tx *gorm.DB) error {
		return s.fileRepo.Create(tx, file)
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperrors.ErrLimitExceeded(apperrors.LimitReason(decision.Reason), decision.Message)
	}

	// строка уже закоммичена; при ошибке записи блоба освобождаем место
	if err := s.storage.Save(ctx, file.FilePath, src, file.FileSize, mimeType); err != nil {
		if delErr := s.fileRepo.SoftDelete(db, file.ID, s.now()); delErr != nil {
			logger.CtxError(ctx, "failed to release reserved file row", "file_id", file.ID, "error", delErr)
		}
		return nil, apperrors.InternalError(fmt.Errorf("failed to save file to storage: %w", err))
	}

	// журнал - только учет, загрузку не откатываем
	if err := s.usage.RecordUsage(ctx, db, req.UserID, file.FileSize, fileType); err != nil {
		telemetry.LedgerFailures.Inc()
		logger.CtxError(ctx, "usage ledger write failed", "file_id", file.ID, "error", err)
	}

	return s.buildFileResponse(ctx, file), nil
}

func (s *fileService) List(ctx context.Context, db *gorm.DB, userID string) ([]dto.FileResponse, error) {
	files, err := s.fileRepo.ListLive(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	out := make([]dto.FileResponse, 0, len(files))
	for i := range files {
		out = append(out, *s.buildFileResponse(ctx, &files[i]))
	}
	return out, nil
}

func (s *fileService) Delete(ctx context.Context, db *gorm.DB, userID, fileID string) error {
	file, err := s.fileRepo.FindByID(db, fileID)
	if err != nil {
		return handleRepoError(err)
	}
	if file.UploaderID != userID {
		return apperrors.NewForbiddenError("access denied")
	}

	if err := s.fileRepo.SoftDelete(db, fileID, s.now()); err != nil {
		return handleRepoError(err)
	}

	// запись уже помечена удаленной, ошибку хранилища только логируем
	if err := s.storage.Delete(ctx, file.FilePath); err != nil {
		logger.CtxWarn(ctx, "failed to delete blob", "path", file.FilePath, "error", err)
	}
	return nil
}

func (s *fileService) fileURL(ctx context.Context, path string) (string, error) {
	if s.signedTTL > 0 {
		return s.storage.GetSignedURL(ctx, path, s.signedTTL)
	}
	return s.storage.GetURL(ctx, path)
}

func (s *fileService) buildFileResponse(ctx context.Context, file *models.File) *dto.FileResponse {
	url, err := s.fileURL(ctx, file.FilePath)
	if err != nil {
		logger.CtxWarn(ctx, "failed to build file url", "file_id", file.ID, "error", err)
	}

	return &dto.FileResponse{
		ID:               file.ID,
		UploaderID:       file.UploaderID,
		TaskID:           file.TaskID,
		ProjectID:        file.ProjectID,
		Filename:         file.Filename,
		OriginalFilename: file.OriginalFilename,
		URL:              url,
		FileSize:         file.FileSize,
		MimeType:         file.MimeType,
		FileType:         file.FileType,
		Checksum:         file.Checksum,
		CreatedAt:        file.CreatedAt,
	}
}

// ============================================
// УТИЛИТЫ
// ============================================

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".zip":  "application/zip",
	".rar":  "application/vnd.rar",
	".7z":   "application/x-7z-compressed",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
}

func getMimeTypeFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m
	}
	return "application/octet-stream"
}

func getFileTypeFromMIME(mimeType string) models.FileType {
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.FileTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.FileTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.FileTypeAudio
	case strings.HasPrefix(mimeType, "text/"),
		mimeType == "application/pdf",
		mimeType == "application/msword",
		strings.HasPrefix(mimeType, "application/vnd.openxmlformats-officedocument"),
		strings.HasPrefix(mimeType, "application/vnd.oasis.opendocument"):
		return models.FileTypeDocument
	case mimeType == "application/zip",
		mimeType == "application/gzip",
		mimeType == "application/vnd.rar",
		mimeType == "application/x-7z-compressed",
		mimeType == "application/x-tar":
		return models.FileTypeArchive
	}
	return models.FileTypeOther
}

func generateSecureRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)[:length]
}
