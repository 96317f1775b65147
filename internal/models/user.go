package models

// User принадлежит внешнему identity-провайдеру.
// Здесь таблица только читается: проверка существования и флаг суперпользователя.
type User struct {
	BaseModel
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex" json:"username"`
	FullName    string `json:"full_name"`
	Role        string `gorm:"type:varchar(20);default:'member'" json:"role"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
	IsSuperuser bool   `gorm:"default:false" json:"is_superuser"`

	Subscription *UserSubscription `gorm:"foreignKey:UserID" json:"-"`
}
