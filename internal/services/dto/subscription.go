package dto

import (
	"time"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/models"
)

// ============================================
// REQUEST STRUCTURES
// ============================================

type ChangePlanRequest struct {
	Plan models.PlanType `json:"plan" validate:"required,is-plan"`
}

type CanUploadQuery struct {
	Size int64           `form:"size" validate:"min=0"`
	Type models.FileType `form:"type" validate:"required,is-file-type"`
}

type UsageReportQuery struct {
	Days int `form:"days" validate:"omitempty,min=1,max=365"`
}

type PackagesQuery struct {
	Type models.AddOnType `form:"type" validate:"omitempty,is-addon-type"`
}

// ============================================
// RESPONSE STRUCTURES
// ============================================

type PlanResponse struct {
	Plan   models.PlanType            `json:"plan"`
	Price  int64                      `json:"price"` // в центах, в месяц
	Limits algorithms.EffectiveLimits `json:"limits"`
}

// UploadDecision - результат проверки загрузки. Отказ - это значение, не ошибка.
type UploadDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

type CurrentUsage struct {
	StorageBytes int64 `json:"storage_used"`
	FileCount    int64 `json:"files_count"`
}

type UsageAverages struct {
	Storage int64 `json:"storage"`
	Files   int64 `json:"files"`
	Video   int64 `json:"video"`
	Audio   int64 `json:"audio"`
}

type UsageDay struct {
	Date         string `json:"date"`
	StorageUsed  int64  `json:"storage_used"`
	FilesCount   int64  `json:"files_count"`
	VideoUploads int64  `json:"video_uploads"`
	AudioUploads int64  `json:"audio_uploads"`
}

type UsageReport struct {
	PeriodDays         int           `json:"period_days"`
	TotalStorageUsed   int64         `json:"total_storage_used"`
	TotalFilesUploaded int64         `json:"total_files_uploaded"`
	TotalVideoUploads  int64         `json:"total_video_uploads"`
	TotalAudioUploads  int64         `json:"total_audio_uploads"`
	DailyAverage       UsageAverages `json:"daily_average"`
	DailyBreakdown     []UsageDay    `json:"daily_breakdown,omitempty"`
}

type PackageUsageResponse struct {
	PackageID   string                 `json:"package_id"`
	PurchasedAt time.Time              `json:"purchased_at"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
	IsActive    bool                   `json:"is_active"`
	UsageData   map[string]interface{} `json:"usage_data"`
}

// ============================================
// UPGRADE SUGGESTIONS
// ============================================

type Suggestion struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Message     string `json:"message"`
	Recommended string `json:"recommended"`
}

type AdvisorUsage struct {
	Storage      int64 `json:"storage"`
	StorageLimit int64 `json:"storage_limit"`
	Files        int64 `json:"files"`
	FilesLimit   int64 `json:"files_limit"`
}

type UpgradeSuggestions struct {
	CurrentPlan  models.PlanType `json:"current_plan"`
	CurrentUsage AdvisorUsage    `json:"current_usage"`
	Suggestions  []Suggestion    `json:"suggestions"`
}
