package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/pkg/apperrors"
)

// AddOnService - каталог аддонов и их жизненный цикл у пользователя
type AddOnService interface {
	ListPackages(ctx context.Context, db *gorm.DB, addOnType *models.AddOnType) ([]models.AddOnPackage, error)
	ListUserAddOns(ctx context.Context, db *gorm.DB, userID string) ([]models.UserAddOn, error)
	Purchase(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error)
	Activate(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error)
	Deactivate(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error)
	Renew(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error)
	PackageUsage(ctx context.Context, db *gorm.DB, userID, packageID string) (*dto.PackageUsageResponse, error)
	SeedDefaultPackages(ctx context.Context, db *gorm.DB) (int, error)
	// SweepExpired снимает флаг is_active с истекших аддонов (для воркера)
	SweepExpired(ctx context.Context, db *gorm.DB) (int, error)
}

type addOnService struct {
	userRepo     repositories.UserRepository
	subRepo      repositories.SubscriptionRepository
	addOnRepo    repositories.AddOnRepository
	entitlements EntitlementService
	now          Clock
	tx           TxRunner
}

func NewAddOnService(
	userRepo repositories.UserRepository,
	subRepo repositories.SubscriptionRepository,
	addOnRepo repositories.AddOnRepository,
	entitlements EntitlementService,
) AddOnService {
	return &addOnService{
		userRepo:     userRepo,
		subRepo:      subRepo,
		addOnRepo:    addOnRepo,
		entitlements: entitlements,
		now:          systemClock,
		tx:           gormTx,
	}
}

// ============================================
// КАТАЛОГ
// ============================================

func (s *addOnService) ListPackages(ctx context.Context, db *gorm.DB, addOnType *models.AddOnType) ([]models.AddOnPackage, error) {
	if addOnType != nil && !addOnType.IsValid() {
		return nil, apperrors.NewValidation("type", "unknown add-on type")
	}
	packages, err := s.addOnRepo.ListPackages(db, addOnType)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return packages, nil
}

func (s *addOnService) ListUserAddOns(ctx context.Context, db *gorm.DB, userID string) ([]models.UserAddOn, error) {
	addOns, err := s.addOnRepo.FindUserAddOns(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return addOns, nil
}

// ============================================
// ПОКУПКА И ЖИЗНЕННЫЙ ЦИКЛ
// ============================================

func (s *addOnService) Purchase(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error) {
	exists, err := s.userRepo.Exists(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !exists {
		return nil, apperrors.NewNotFound("user", "user not found")
	}

	pkg, err := s.addOnRepo.FindPackageByID(db, packageID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !pkg.IsActive {
		return nil, apperrors.NewNotFound("subscription", "add-on package not available")
	}

	now := s.now()
	var created *models.UserAddOn

	err = s.tx(db, func(tx *gorm.DB) error {
		// истекший, но не подметенный воркером аддон повторной покупке не мешает
		active, err := s.addOnRepo.FindActiveUserAddOns(tx, userID, now)
		if err != nil {
			return apperrors.InternalError(err)
		}
		for i := range active {
			if active[i].PackageID == pkg.ID && algorithms.AddOnActive(&active[i], now) {
				return apperrors.ErrConflict(nil, "subscription", "add-on package already active")
			}
		}

		usage, _ := json.Marshal(map[string]interface{}{
			"purchased_at": now.Format(time.RFC3339),
			"usage_count":  0,
		})
		addOn := &models.UserAddOn{
			UserID:      userID,
			PackageID:   pkg.ID,
			PurchasedAt: now,
			ExpiresAt:   expiryFor(pkg.BillingCycle, now),
			IsActive:    true,
			UsageData:   datatypes.JSON(usage),
		}
		if err := s.addOnRepo.CreateUserAddOn(tx, addOn); err != nil {
			return apperrors.InternalError(err)
		}

		record := &models.BillingTransaction{
			UserID:        userID,
			TransactionID: uuid.NewString(),
			Amount:        pkg.Price,
			Currency:      pkg.Currency,
			Status:        models.TransactionPending,
			OperationType: models.OperationAddOn,
			ReferenceID:   addOn.ID,
		}
		if err := s.subRepo.CreateTransaction(tx, record); err != nil {
			return apperrors.InternalError(err)
		}

		addOn.Package = pkg
		created = addOn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.entitlements.Invalidate(ctx, userID)
	logger.CtxInfo(ctx, "add-on purchased", "user_id", userID, "package", pkg.Name)
	return created, nil
}

func (s *addOnService) Activate(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error) {
	return s.mutate(ctx, db, userID, packageID, func(addOn *models.UserAddOn, now time.Time) {
		addOn.IsActive = true
		if addOn.Package != nil {
			addOn.ExpiresAt = expiryFor(addOn.Package.BillingCycle, now)
		}
	})
}

func (s *addOnService) Deactivate(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error) {
	return s.mutate(ctx, db, userID, packageID, func(addOn *models.UserAddOn, _ time.Time) {
		addOn.IsActive = false
	})
}

// Renew продлевает на один период от max(now, expires_at)
func (s *addOnService) Renew(ctx context.Context, db *gorm.DB, userID, packageID string) (*models.UserAddOn, error) {
	return s.mutate(ctx, db, userID, packageID, func(addOn *models.UserAddOn, now time.Time) {
		from := now
		if addOn.ExpiresAt != nil && addOn.ExpiresAt.After(now) {
			from = *addOn.ExpiresAt
		}
		addOn.IsActive = true
		if addOn.Package != nil {
			addOn.ExpiresAt = expiryFor(addOn.Package.BillingCycle, from)
		}
	})
}

func (s *addOnService) mutate(
	ctx context.Context,
	db *gorm.DB,
	userID, packageID string,
	apply func(addOn *models.UserAddOn, now time.Time),
) (*models.UserAddOn, error) {
	addOn, err := s.addOnRepo.FindUserAddOn(db, userID, packageID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if addOn.Package == nil {
		if addOn.Package, err = s.addOnRepo.FindPackageByID(db, addOn.PackageID); err != nil {
			return nil, handleRepoError(err)
		}
	}

	now := s.now()
	apply(addOn, now)
	addOn.LastUsageUpdate = &now

	if err := s.addOnRepo.UpdateUserAddOn(db, addOn); err != nil {
		return nil, handleRepoError(err)
	}

	s.entitlements.Invalidate(ctx, userID)
	return addOn, nil
}

func (s *addOnService) PackageUsage(ctx context.Context, db *gorm.DB, userID, packageID string) (*dto.PackageUsageResponse, error) {
	addOn, err := s.addOnRepo.FindUserAddOn(db, userID, packageID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	usage := map[string]interface{}{}
	if len(addOn.UsageData) > 0 {
		if err := json.Unmarshal(addOn.UsageData, &usage); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	return &dto.PackageUsageResponse{
		PackageID:   addOn.PackageID,
		PurchasedAt: addOn.PurchasedAt,
		ExpiresAt:   addOn.ExpiresAt,
		IsActive:    algorithms.AddOnActive(addOn, s.now()),
		UsageData:   usage,
	}, nil
}

// ============================================
// ОБСЛУЖИВАНИЕ
// ============================================

// SeedDefaultPackages создает недостающие пакеты каталога, существующие (по имени) не трогает
func (s *addOnService) SeedDefaultPackages(ctx context.Context, db *gorm.DB) (int, error) {
	created := 0
	for _, pkg := range defaultPackages() {
		_, err := s.addOnRepo.FindPackageByName(db, pkg.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrPackageNotFound) {
			return created, apperrors.InternalError(err)
		}

		pkg := pkg
		if err := s.addOnRepo.CreatePackage(db, &pkg); err != nil {
			return created, apperrors.InternalError(err)
		}
		created++
	}

	logger.CtxInfo(ctx, "add-on catalog seeded", "created", created)
	return created, nil
}

func (s *addOnService) SweepExpired(ctx context.Context, db *gorm.DB) (int, error) {
	userIDs, err := s.addOnRepo.DeactivateExpired(db, s.now())
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	for _, id := range userIDs {
		s.entitlements.Invalidate(ctx, id)
	}
	return len(userIDs), nil
}

// expiryFor: monthly +30 дней, yearly +365, lifetime - без срока
func expiryFor(cycle models.BillingCycle, from time.Time) *time.Time {
	var exp time.Time
	switch cycle {
	case models.BillingMonthly:
		exp = from.AddDate(0, 0, 30)
	case models.BillingYearly:
		exp = from.AddDate(0, 0, 365)
	default:
		return nil
	}
	return &exp
}

func defaultPackages() []models.AddOnPackage {
	pkg := func(name string, t models.AddOnType, price int64, order int, desc string, f algorithms.AddOnFeatures) models.AddOnPackage {
		raw, _ := json.Marshal(f)
		return models.AddOnPackage{
			Name:         name,
			Type:         t,
			Price:        price,
			Currency:     "USD",
			BillingCycle: models.BillingMonthly,
			Features:     datatypes.JSON(raw),
			Description:  desc,
			IsActive:     true,
			SortOrder:    order,
		}
	}
	videoAudio := func(size int64) algorithms.AddOnFeatures {
		return algorithms.AddOnFeatures{
			MaxVideoSizeBytes: size,
			AllowedTypes:      []string{string(models.FileTypeVideo), string(models.FileTypeAudio)},
		}
	}

	return []models.AddOnPackage{
		pkg("Storage 1GB", models.AddOnStorage, 200, 1, "Дополнительный 1 ГБ хранилища",
			algorithms.AddOnFeatures{StorageBytes: 1 * algorithms.GiB}),
		pkg("Storage 5GB", models.AddOnStorage, 800, 2, "Дополнительные 5 ГБ хранилища",
			algorithms.AddOnFeatures{StorageBytes: 5 * algorithms.GiB}),
		pkg("Storage 10GB", models.AddOnStorage, 1500, 3, "Дополнительные 10 ГБ хранилища",
			algorithms.AddOnFeatures{StorageBytes: 10 * algorithms.GiB}),
		pkg("Video/Audio 100MB", models.AddOnVideoAudio, 500, 10, "Видео и аудио до 100 МБ",
			videoAudio(100*algorithms.MiB)),
		pkg("Video/Audio 500MB", models.AddOnVideoAudio, 1500, 11, "Видео и аудио до 500 МБ",
			videoAudio(500*algorithms.MiB)),
		pkg("Video/Audio 1GB", models.AddOnVideoAudio, 2500, 12, "Видео и аудио до 1 ГБ",
			videoAudio(1*algorithms.GiB)),
		pkg("+5 Users", models.AddOnUsers, 1000, 20, "Еще 5 участников",
			algorithms.AddOnFeatures{UsersCount: 5}),
		pkg("+15 Users", models.AddOnUsers, 2500, 21, "Еще 15 участников",
			algorithms.AddOnFeatures{UsersCount: 15}),
		pkg("+10 Projects", models.AddOnProjects, 500, 30, "Еще 10 проектов",
			algorithms.AddOnFeatures{ProjectsCount: 10}),
		pkg("Unlimited Projects", models.AddOnProjects, 1500, 31, "Без ограничения на число проектов",
			algorithms.AddOnFeatures{Unlimited: true}),
	}
}
