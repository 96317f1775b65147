package repositories

import (
	"errors"

	"timetodo_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type SubscriptionRepository interface {
	FindByUserID(db *gorm.DB, userID string) (*models.UserSubscription, error)
	// LockByUserID - SELECT ... FOR UPDATE, точка сериализации загрузок пользователя
	LockByUserID(db *gorm.DB, userID string) (*models.UserSubscription, error)
	// CreateIfMissing - INSERT ... ON CONFLICT (user_id) DO NOTHING
	CreateIfMissing(db *gorm.DB, sub *models.UserSubscription) error
	Update(db *gorm.DB, sub *models.UserSubscription) error

	// BillingTransaction operations
	CreateTransaction(db *gorm.DB, tx *models.BillingTransaction) error
	FindTransactionsByUser(db *gorm.DB, userID string) ([]models.BillingTransaction, error)
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

func (r *SubscriptionRepositoryImpl) FindByUserID(db *gorm.DB, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) LockByUserID(db *gorm.DB, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) CreateIfMissing(db *gorm.DB, sub *models.UserSubscription) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) Update(db *gorm.DB, sub *models.UserSubscription) error {
	result := db.Model(sub).Select(
		"plan", "storage_limit", "file_count_limit", "max_file_size", "allowed_file_types",
		"projects_limit", "users_limit", "started_at", "expires_at", "is_active", "updated_at",
	).Updates(sub)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// BillingTransaction operations

func (r *SubscriptionRepositoryImpl) CreateTransaction(db *gorm.DB, tx *models.BillingTransaction) error {
	return db.Create(tx).Error
}

func (r *SubscriptionRepositoryImpl) FindTransactionsByUser(db *gorm.DB, userID string) ([]models.BillingTransaction, error) {
	var txs []models.BillingTransaction
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error
	return txs, err
}
