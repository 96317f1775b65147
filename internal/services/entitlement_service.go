package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/cache"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/internal/telemetry"
	"timetodo_backend/pkg/apperrors"
)

// Месячная цена тарифа в центах, пишется в billing_transactions
var planPrices = map[models.PlanType]int64{
	models.PlanFree:     0,
	models.PlanStarter:  900,
	models.PlanTeam:     2900,
	models.PlanBusiness: 9900,
}

var planOrder = []models.PlanType{models.PlanFree, models.PlanStarter, models.PlanTeam, models.PlanBusiness}

// EntitlementService вычисляет итоговые лимиты: тариф + активные аддоны
type EntitlementService interface {
	Resolve(ctx context.Context, db *gorm.DB, userID string) (*algorithms.EffectiveLimits, error)
	// ResolveFresh - мимо кэша, для транзакции резервирования
	ResolveFresh(ctx context.Context, db *gorm.DB, userID string) (*algorithms.EffectiveLimits, error)
	GetOrCreateSubscription(ctx context.Context, db *gorm.DB, userID string) (*models.UserSubscription, error)
	ChangePlan(ctx context.Context, db *gorm.DB, userID string, plan models.PlanType) (*models.UserSubscription, error)
	ListPlans() []dto.PlanResponse
	Invalidate(ctx context.Context, userID string)
}

type entitlementService struct {
	userRepo  repositories.UserRepository
	subRepo   repositories.SubscriptionRepository
	addOnRepo repositories.AddOnRepository
	cache     cache.LimitsCache
	cacheTTL  time.Duration
	now       Clock
	tx        TxRunner
}

func NewEntitlementService(
	userRepo repositories.UserRepository,
	subRepo repositories.SubscriptionRepository,
	addOnRepo repositories.AddOnRepository,
	limitsCache cache.LimitsCache,
	cacheTTL time.Duration,
) EntitlementService {
	if limitsCache == nil {
		limitsCache = cache.NewNoopCache()
	}
	return &entitlementService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		addOnRepo: addOnRepo,
		cache:     limitsCache,
		cacheTTL:  cacheTTL,
		now:       systemClock,
		tx:        gormTx,
	}
}

// ============================================
// РАЗРЕШЕНИЕ ЛИМИТОВ
// ============================================

func (s *entitlementService) Resolve(ctx context.Context, db *gorm.DB, userID string) (*algorithms.EffectiveLimits, error) {
	// поколение читается до БД: если мутация закоммитится между чтением
	// и Set, запись ляжет под устаревшим поколением
	cached, generation, ok, err := s.cache.Get(ctx, userID)
	cacheable := err == nil
	switch {
	case err != nil:
		telemetry.LimitsCacheLookups.WithLabelValues("error").Inc()
		logger.CtxWarn(ctx, "limits cache read failed", "error", err)
	case ok:
		telemetry.LimitsCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		telemetry.LimitsCacheLookups.WithLabelValues("miss").Inc()
	}

	limits, ttl, err := s.resolve(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	if cacheable && ttl > 0 {
		if err := s.cache.Set(ctx, userID, generation, *limits, ttl); err != nil {
			logger.CtxWarn(ctx, "limits cache write failed", "error", err)
		}
	}
	return limits, nil
}

func (s *entitlementService) ResolveFresh(ctx context.Context, db *gorm.DB, userID string) (*algorithms.EffectiveLimits, error) {
	limits, _, err := s.resolve(ctx, db, userID)
	return limits, err
}

// resolve возвращает лимиты и допустимый TTL кэша для них
func (s *entitlementService) resolve(ctx context.Context, db *gorm.DB, userID string) (*algorithms.EffectiveLimits, time.Duration, error) {
	if err := s.ensureUser(db, userID); err != nil {
		return nil, 0, err
	}

	now := s.now()
	sub, err := s.ensureSubscription(db, userID, now)
	if err != nil {
		return nil, 0, err
	}

	base := algorithms.FromSubscription(sub, now)
	var expiries []*time.Time
	if sub.Effective(now) {
		expiries = append(expiries, sub.ExpiresAt)
	}

	addOns, err := s.addOnRepo.FindActiveUserAddOns(db, userID, now)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}

	effects := make([]algorithms.Effect, 0, len(addOns))
	for i := range addOns {
		addOn := &addOns[i]
		// срок перепроверяем: запрос и now могли разойтись
		if !algorithms.AddOnActive(addOn, now) {
			continue
		}

		pkg := addOn.Package
		if pkg == nil {
			if pkg, err = s.addOnRepo.FindPackageByID(db, addOn.PackageID); err != nil {
				return nil, 0, handleRepoError(err)
			}
		}

		effect, err := algorithms.ParseEffect(pkg.Type, pkg.Features)
		if err != nil {
			logger.CtxError(ctx, "broken add-on package payload", "package_id", pkg.ID, "error", err)
			return nil, 0, apperrors.InternalError(err)
		}
		effects = append(effects, effect)
		expiries = append(expiries, addOn.ExpiresAt)
	}

	limits := algorithms.Fold(base, effects...)
	return &limits, algorithms.CacheTTL(s.cacheTTL, now, expiries...), nil
}

// ============================================
// ПОДПИСКА
// ============================================

func (s *entitlementService) GetOrCreateSubscription(ctx context.Context, db *gorm.DB, userID string) (*models.UserSubscription, error) {
	if err := s.ensureUser(db, userID); err != nil {
		return nil, err
	}
	return s.ensureSubscription(db, userID, s.now())
}

func (s *entitlementService) ChangePlan(ctx context.Context, db *gorm.DB, userID string, plan models.PlanType) (*models.UserSubscription, error) {
	if !plan.IsValid() {
		return nil, apperrors.NewValidation("plan", "unknown plan")
	}
	if err := s.ensureUser(db, userID); err != nil {
		return nil, err
	}

	now := s.now()
	var updated *models.UserSubscription

	err := s.tx(db, func(tx *gorm.DB) error {
		if _, err := s.ensureSubscription(tx, userID, now); err != nil {
			return err
		}
		sub, err := s.subRepo.LockByUserID(tx, userID)
		if err != nil {
			return handleRepoError(err)
		}

		algorithms.ApplyPlan(sub, plan)
		sub.IsActive = true
		sub.StartedAt = now
		sub.ExpiresAt = nil
		if err := s.subRepo.Update(tx, sub); err != nil {
			return handleRepoError(err)
		}

		record := &models.BillingTransaction{
			UserID:        userID,
			TransactionID: uuid.NewString(),
			Amount:        planPrices[plan],
			Currency:      "USD",
			Status:        models.TransactionPending,
			OperationType: models.OperationUpgrade,
			ReferenceID:   sub.ID,
		}
		if err := s.subRepo.CreateTransaction(tx, record); err != nil {
			return apperrors.InternalError(err)
		}

		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID)
	logger.CtxInfo(ctx, "plan changed", "user_id", userID, "plan", plan)
	return updated, nil
}

func (s *entitlementService) ListPlans() []dto.PlanResponse {
	plans := make([]dto.PlanResponse, 0, len(planOrder))
	for _, p := range planOrder {
		limits, _ := algorithms.PlanLimits(p)
		plans = append(plans, dto.PlanResponse{Plan: p, Price: planPrices[p], Limits: limits})
	}
	return plans
}

func (s *entitlementService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.CtxWarn(ctx, "limits cache invalidation failed", "user_id", userID, "error", err)
	}
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ МЕТОДЫ
// ============================================

func (s *entitlementService) ensureUser(db *gorm.DB, userID string) error {
	exists, err := s.userRepo.Exists(db, userID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !exists {
		return apperrors.NewNotFound("user", "user not found")
	}
	return nil
}

// ensureSubscription лениво создает Free-подписку (ON CONFLICT DO NOTHING)
func (s *entitlementService) ensureSubscription(db *gorm.DB, userID string, now time.Time) (*models.UserSubscription, error) {
	sub, err := s.subRepo.FindByUserID(db, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, repositories.ErrSubscriptionNotFound) {
		return nil, apperrors.InternalError(err)
	}

	if err := s.subRepo.CreateIfMissing(db, newFreeSubscription(userID, now)); err != nil {
		return nil, apperrors.InternalError(err)
	}

	// строку мог создать параллельный запрос, перечитываем
	sub, err = s.subRepo.FindByUserID(db, userID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return sub, nil
}

func newFreeSubscription(userID string, now time.Time) *models.UserSubscription {
	sub := &models.UserSubscription{
		UserID:    userID,
		StartedAt: now,
		IsActive:  true,
	}
	algorithms.ApplyPlan(sub, models.PlanFree)
	return sub
}
