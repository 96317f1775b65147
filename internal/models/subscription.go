package models

import (
	"time"

	"github.com/lib/pq"
)

// UserSubscription - ровно одна строка на пользователя.
// Лимиты хранятся денормализованно: смена тарифа переписывает кортеж целиком.
type UserSubscription struct {
	BaseModel
	UserID           string         `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Plan             PlanType       `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	StorageLimit     int64          `gorm:"not null" json:"storage_limit"`
	FileCountLimit   int64          `gorm:"not null" json:"file_count_limit"`
	MaxFileSize      int64          `gorm:"not null" json:"max_file_size"`
	AllowedFileTypes pq.StringArray `gorm:"type:text[]" json:"allowed_file_types"`
	ProjectsLimit    int64          `gorm:"not null" json:"projects_limit"`
	UsersLimit       int64          `gorm:"not null" json:"users_limit"`
	StartedAt        time.Time      `json:"started_at"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

// Effective - подписка действует (неактивная или истекшая дает Free)
func (s *UserSubscription) Effective(now time.Time) bool {
	return s.IsActive && (s.ExpiresAt == nil || s.ExpiresAt.After(now))
}

// BillingTransaction - запись о покупке. Платежного шлюза нет, статус остается pending.
type BillingTransaction struct {
	BaseModel
	UserID        string            `gorm:"type:uuid;not null;index" json:"user_id"`
	TransactionID string            `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Amount        int64             `json:"amount"` // в центах
	Currency      string            `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	Status        TransactionStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	OperationType OperationType     `gorm:"type:varchar(20);not null" json:"operation_type"`
	ReferenceID   string            `gorm:"type:uuid" json:"reference_id,omitempty"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
}
