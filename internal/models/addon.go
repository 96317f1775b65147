package models

import (
	"time"

	"gorm.io/datatypes"
)

// AddOnPackage - позиция каталога. Не удаляется, только деактивируется.
type AddOnPackage struct {
	BaseModel
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	Type         AddOnType      `gorm:"type:varchar(20);not null;index" json:"type"`
	Price        int64          `gorm:"not null" json:"price"` // в центах
	Currency     string         `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	BillingCycle BillingCycle   `gorm:"type:varchar(20);not null" json:"billing_cycle"`
	Features     datatypes.JSON `gorm:"type:jsonb" json:"features"` // {"storage_bytes": 5368709120}
	Description  string         `json:"description"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	SortOrder    int            `gorm:"default:0" json:"sort_order"`
}

func (AddOnPackage) TableName() string {
	return "addon_packages"
}

// UserAddOn - владение пакетом. ExpiresAt == nil - бессрочный.
type UserAddOn struct {
	BaseModel
	UserID          string         `gorm:"type:uuid;not null;index" json:"user_id"`
	PackageID       string         `gorm:"type:uuid;not null;index" json:"package_id"`
	PurchasedAt     time.Time      `json:"purchased_at"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	AutoRenew       bool           `gorm:"default:false" json:"auto_renew"`
	UsageData       datatypes.JSON `gorm:"type:jsonb" json:"usage_data"`
	LastUsageUpdate *time.Time     `json:"last_usage_update,omitempty"`

	Package *AddOnPackage `gorm:"foreignKey:PackageID" json:"package,omitempty"`
}

func (UserAddOn) TableName() string {
	return "user_addons"
}
