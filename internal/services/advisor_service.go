package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"timetodo_backend/internal/models"
	"timetodo_backend/internal/services/dto"
)

const upgradeThreshold = 80.0

// AdvisorService подсказывает апгрейд по текущему потреблению. Только чтение.
type AdvisorService interface {
	Suggest(ctx context.Context, db *gorm.DB, userID string) (*dto.UpgradeSuggestions, error)
}

type advisorService struct {
	entitlements EntitlementService
	usage        UsageService
	now          Clock
}

func NewAdvisorService(entitlements EntitlementService, usage UsageService) AdvisorService {
	return &advisorService{entitlements: entitlements, usage: usage, now: systemClock}
}

func (s *advisorService) Suggest(ctx context.Context, db *gorm.DB, userID string) (*dto.UpgradeSuggestions, error) {
	limits, err := s.entitlements.Resolve(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.entitlements.GetOrCreateSubscription(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usage.CurrentUsage(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	plan := models.PlanFree
	if sub != nil && sub.Effective(s.now()) {
		plan = sub.Plan
	}

	out := &dto.UpgradeSuggestions{
		CurrentPlan: plan,
		CurrentUsage: dto.AdvisorUsage{
			Storage:      usage.StorageBytes,
			StorageLimit: limits.StorageLimit,
			Files:        usage.FileCount,
			FilesLimit:   limits.FileCountLimit,
		},
		Suggestions: []dto.Suggestion{},
	}

	if pct := percent(usage.StorageBytes, limits.StorageLimit); pct > upgradeThreshold {
		out.Suggestions = append(out.Suggestions, dto.Suggestion{
			Type:        "storage",
			Priority:    "high",
			Message:     fmt.Sprintf("Использовано %.1f%% хранилища", pct),
			Recommended: "storage_package_5gb",
		})
	}
	if pct := percent(usage.FileCount, limits.FileCountLimit); pct > upgradeThreshold {
		out.Suggestions = append(out.Suggestions, dto.Suggestion{
			Type:        "files",
			Priority:    "high",
			Message:     fmt.Sprintf("Использовано %.1f%% лимита файлов", pct),
			Recommended: "upgrade_plan",
		})
	}
	if !limits.Allows(models.FileTypeVideo) {
		out.Suggestions = append(out.Suggestions, dto.Suggestion{
			Type:        "video",
			Priority:    "medium",
			Message:     "Загрузка видео недоступна",
			Recommended: "video_package",
		})
	}
	return out, nil
}

// percent = 0 при лимите <= 0, включая безлимит
func percent(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}
