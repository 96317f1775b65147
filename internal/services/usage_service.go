package services

import (
	"context"

	"gorm.io/gorm"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/internal/telemetry"
	"timetodo_backend/pkg/apperrors"
)

const (
	msgTypeNotAllowed  = "file type not allowed in current plan"
	msgSizeExceeded    = "file size exceeds limit"
	msgStorageExceeded = "insufficient storage"
	msgCountExceeded   = "file count limit reached"
)

// InsertFunc сохраняет строку файла внутри транзакции резервирования
type InsertFunc func(tx *gorm.DB) error

type UsageService interface {
	// CanUpload - рекомендательная проверка, без блокировок
	CanUpload(ctx context.Context, db *gorm.DB, userID string, fileSize int64, fileType models.FileType) (dto.UploadDecision, error)
	// ReserveUpload - проверка и вставка под блокировкой строки подписки
	ReserveUpload(ctx context.Context, db *gorm.DB, userID string, fileSize int64, fileType models.FileType, insert InsertFunc) (dto.UploadDecision, error)
	RecordUsage(ctx context.Context, db *gorm.DB, userID string, fileSize int64, fileType models.FileType) error
	CurrentUsage(ctx context.Context, db *gorm.DB, userID string) (*dto.CurrentUsage, error)
	UsageReport(ctx context.Context, db *gorm.DB, userID string, days int) (*dto.UsageReport, error)
}

type usageService struct {
	entitlements EntitlementService
	subRepo      repositories.SubscriptionRepository
	fileRepo     repositories.FileRepository
	usageRepo    repositories.UsageRepository
	now          Clock
	tx           TxRunner
}

func NewUsageService(
	entitlements EntitlementService,
	subRepo repositories.SubscriptionRepository,
	fileRepo repositories.FileRepository,
	usageRepo repositories.UsageRepository,
) UsageService {
	return &usageService{
		entitlements: entitlements,
		subRepo:      subRepo,
		fileRepo:     fileRepo,
		usageRepo:    usageRepo,
		now:          systemClock,
		tx:           gormTx,
	}
}

// ============================================
// ПРОВЕРКА ЗАГРУЗКИ
// ============================================

func (s *usageService) CanUpload(ctx context.Context, db *gorm.DB, userID string, fileSize int64, fileType models.FileType) (dto.UploadDecision, error) {
	if err := validateUpload(fileSize, fileType); err != nil {
		return dto.UploadDecision{}, err
	}

	limits, err := s.entitlements.Resolve(ctx, db, userID)
	if err != nil {
		return dto.UploadDecision{}, err
	}
	usage, err := s.fileRepo.LiveUsage(db, userID)
	if err != nil {
		return dto.UploadDecision{}, apperrors.InternalError(err)
	}

	return checkUpload(*limits, usage, fileSize, fileType), nil
}

func (s *usageService) ReserveUpload(
	ctx context.Context,
	db *gorm.DB,
	userID string,
	fileSize int64,
	fileType models.FileType,
	insert InsertFunc,
) (dto.UploadDecision, error) {
	if err := validateUpload(fileSize, fileType); err != nil {
		return dto.UploadDecision{}, err
	}

	var decision dto.UploadDecision
	err := s.tx(db, func(tx *gorm.DB) error {
		// строку подписки нужно создать до FOR UPDATE
		if _, err := s.entitlements.GetOrCreateSubscription(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := s.subRepo.LockByUserID(tx, userID); err != nil {
			return handleRepoError(err)
		}

		limits, err := s.entitlements.ResolveFresh(ctx, tx, userID)
		if err != nil {
			return err
		}
		usage, err := s.fileRepo.LiveUsage(tx, userID)
		if err != nil {
			return apperrors.InternalError(err)
		}

		decision = checkUpload(*limits, usage, fileSize, fileType)
		if !decision.Allowed {
			return nil
		}
		return insert(tx)
	})
	if err != nil {
		return dto.UploadDecision{}, err
	}

	telemetry.RecordUploadDecision(decision.Allowed, decision.Reason)
	if !decision.Allowed {
		logger.CtxInfo(ctx, "upload denied", "user_id", userID, "reason", decision.Reason, "size", fileSize)
	}
	return decision, nil
}

// checkUpload - порядок проверок фиксирован: тип, размер, хранилище, количество.
// Возвращается первая причина отказа.
func checkUpload(limits algorithms.EffectiveLimits, usage repositories.LiveUsage, fileSize int64, fileType models.FileType) dto.UploadDecision {
	deny := func(reason apperrors.LimitReason, msg string) dto.UploadDecision {
		return dto.UploadDecision{Allowed: false, Reason: string(reason), Message: msg}
	}

	if !limits.Allows(fileType) {
		return deny(apperrors.ReasonTypeNotAllowed, msgTypeNotAllowed)
	}
	if limits.MaxFileSize != algorithms.Unlimited && fileSize > limits.MaxFileSize {
		return deny(apperrors.ReasonSizeExceeded, msgSizeExceeded)
	}
	if limits.StorageLimit != algorithms.Unlimited && usage.StorageBytes+fileSize > limits.StorageLimit {
		return deny(apperrors.ReasonStorageExceeded, msgStorageExceeded)
	}
	if limits.FileCountLimit != algorithms.Unlimited && usage.FileCount+1 > limits.FileCountLimit {
		return deny(apperrors.ReasonCountExceeded, msgCountExceeded)
	}
	return dto.UploadDecision{Allowed: true}
}

func validateUpload(fileSize int64, fileType models.FileType) error {
	if fileSize < 0 {
		return apperrors.NewValidation("size", "file size must not be negative")
	}
	if !fileType.IsValid() {
		return apperrors.NewValidation("type", "unknown file type")
	}
	return nil
}

// ============================================
// ЖУРНАЛ И ОТЧЕТЫ
// ============================================

func (s *usageService) RecordUsage(ctx context.Context, db *gorm.DB, userID string, fileSize int64, fileType models.FileType) error {
	if err := validateUpload(fileSize, fileType); err != nil {
		return err
	}

	delta := repositories.UsageDelta{StorageUsed: fileSize, FilesCount: 1}
	switch fileType {
	case models.FileTypeVideo:
		delta.VideoUploads = 1
	case models.FileTypeAudio:
		delta.AudioUploads = 1
	}

	if err := s.usageRepo.Increment(db, userID, s.now(), delta); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// CurrentUsage считается по живым файлам, журнал не читается
func (s *usageService) CurrentUsage(ctx context.Context, db *gorm.DB, userID string) (*dto.CurrentUsage, error) {
	usage, err := s.fileRepo.LiveUsage(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.CurrentUsage{StorageBytes: usage.StorageBytes, FileCount: usage.FileCount}, nil
}

func (s *usageService) UsageReport(ctx context.Context, db *gorm.DB, userID string, days int) (*dto.UsageReport, error) {
	if days < 1 || days > 365 {
		return nil, apperrors.NewValidation("days", "days must be between 1 and 365")
	}

	now := s.now()
	window := algorithms.LastDays(now, days)
	rows, err := s.usageRepo.FindRange(db, userID, window.Start, window.End)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	report := &dto.UsageReport{PeriodDays: days}
	if len(rows) == 0 {
		return report, nil
	}

	report.DailyBreakdown = make([]dto.UsageDay, 0, len(rows))
	for _, row := range rows {
		report.TotalStorageUsed += row.StorageUsed
		report.TotalFilesUploaded += row.FilesCount
		report.TotalVideoUploads += row.VideoUploads
		report.TotalAudioUploads += row.AudioUploads

		report.DailyBreakdown = append(report.DailyBreakdown, dto.UsageDay{
			Date:         row.Date.Format("2006-01-02"),
			StorageUsed:  row.StorageUsed,
			FilesCount:   row.FilesCount,
			VideoUploads: row.VideoUploads,
			AudioUploads: row.AudioUploads,
		})
	}

	// среднее по дням, в которых были записи
	n := int64(len(rows))
	report.DailyAverage = dto.UsageAverages{
		Storage: report.TotalStorageUsed / n,
		Files:   report.TotalFilesUploaded / n,
		Video:   report.TotalVideoUploads / n,
		Audio:   report.TotalAudioUploads / n,
	}
	return report, nil
}
