package repositories

import (
	"errors"
	"time"

	"timetodo_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPackageNotFound   = errors.New("add-on package not found")
	ErrUserAddOnNotFound = errors.New("user add-on not found")
)

type AddOnRepository interface {
	// AddOnPackage operations
	ListPackages(db *gorm.DB, addOnType *models.AddOnType) ([]models.AddOnPackage, error)
	FindPackageByID(db *gorm.DB, id string) (*models.AddOnPackage, error)
	FindPackageByName(db *gorm.DB, name string) (*models.AddOnPackage, error)
	CreatePackage(db *gorm.DB, pkg *models.AddOnPackage) error

	// UserAddOn operations
	FindActiveUserAddOns(db *gorm.DB, userID string, now time.Time) ([]models.UserAddOn, error)
	FindUserAddOns(db *gorm.DB, userID string) ([]models.UserAddOn, error)
	FindUserAddOn(db *gorm.DB, userID, packageID string) (*models.UserAddOn, error)
	CreateUserAddOn(db *gorm.DB, addOn *models.UserAddOn) error
	UpdateUserAddOn(db *gorm.DB, addOn *models.UserAddOn) error

	// Housekeeping
	DeactivateExpired(db *gorm.DB, now time.Time) ([]string, error)
}

type AddOnRepositoryImpl struct{}

func NewAddOnRepository() AddOnRepository {
	return &AddOnRepositoryImpl{}
}

// AddOnPackage operations

func (r *AddOnRepositoryImpl) ListPackages(db *gorm.DB, addOnType *models.AddOnType) ([]models.AddOnPackage, error) {
	var packages []models.AddOnPackage
	query := db.Where("is_active = ?", true)

	if addOnType != nil {
		query = query.Where("type = ?", *addOnType)
	}

	err := query.Order("sort_order ASC").Order("price ASC").Find(&packages).Error
	return packages, err
}

func (r *AddOnRepositoryImpl) FindPackageByID(db *gorm.DB, id string) (*models.AddOnPackage, error) {
	var pkg models.AddOnPackage
	err := db.First(&pkg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *AddOnRepositoryImpl) FindPackageByName(db *gorm.DB, name string) (*models.AddOnPackage, error) {
	var pkg models.AddOnPackage
	err := db.First(&pkg, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *AddOnRepositoryImpl) CreatePackage(db *gorm.DB, pkg *models.AddOnPackage) error {
	return db.Create(pkg).Error
}

// UserAddOn operations

// FindActiveUserAddOns - is_active И (expires_at IS NULL ИЛИ expires_at > now).
// now передается снаружи, чтобы срок проверялся лениво на каждом вызове.
func (r *AddOnRepositoryImpl) FindActiveUserAddOns(db *gorm.DB, userID string, now time.Time) ([]models.UserAddOn, error) {
	var addOns []models.UserAddOn
	err := db.Preload("Package").
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Find(&addOns).Error
	return addOns, err
}

func (r *AddOnRepositoryImpl) FindUserAddOns(db *gorm.DB, userID string) ([]models.UserAddOn, error) {
	var addOns []models.UserAddOn
	err := db.Preload("Package").
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&addOns).Error
	return addOns, err
}

// FindUserAddOn - последняя покупка пакета пользователем
func (r *AddOnRepositoryImpl) FindUserAddOn(db *gorm.DB, userID, packageID string) (*models.UserAddOn, error) {
	var addOn models.UserAddOn
	err := db.Preload("Package").
		Where("user_id = ? AND package_id = ?", userID, packageID).
		Order("purchased_at DESC").
		First(&addOn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserAddOnNotFound
		}
		return nil, err
	}
	return &addOn, nil
}

func (r *AddOnRepositoryImpl) CreateUserAddOn(db *gorm.DB, addOn *models.UserAddOn) error {
	return db.Omit("Package").Create(addOn).Error
}

func (r *AddOnRepositoryImpl) UpdateUserAddOn(db *gorm.DB, addOn *models.UserAddOn) error {
	result := db.Model(addOn).Select(
		"expires_at", "is_active", "auto_renew", "usage_data", "last_usage_update", "updated_at",
	).Updates(addOn)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserAddOnNotFound
	}
	return nil
}

// DeactivateExpired сбрасывает is_active у истекших аддонов и возвращает затронутых пользователей.
// На лимиты не влияет (срок и так проверяется лениво), только наводит порядок в данных.
func (r *AddOnRepositoryImpl) DeactivateExpired(db *gorm.DB, now time.Time) ([]string, error) {
	var expired []models.UserAddOn
	err := db.Select("id", "user_id").
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Find(&expired).Error
	if err != nil || len(expired) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(expired))
	users := make(map[string]struct{})
	for _, a := range expired {
		ids = append(ids, a.ID)
		users[a.UserID] = struct{}{}
	}

	if err := db.Model(&models.UserAddOn{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"is_active":  false,
		"updated_at": now,
	}).Error; err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}
