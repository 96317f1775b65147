package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"timetodo_backend/internal/repositories"
	"timetodo_backend/pkg/apperrors"
)

// TxRunner выполняет fn в транзакции. По умолчанию db.Transaction,
// в юнит-тестах подменяется, чтобы обойтись без БД.
type TxRunner func(db *gorm.DB, fn func(tx *gorm.DB) error) error

func gormTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(fn)
}

// Clock - источник времени (подменяется в тестах)
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// handleRepoError переводит ошибки репозиториев в AppError
func handleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.NewNotFound("user", "user not found")
	case errors.Is(err, repositories.ErrProjectNotFound):
		return apperrors.NewNotFound("project", "project not found")
	case errors.Is(err, repositories.ErrSprintNotFound):
		return apperrors.NewNotFound("sprint", "sprint not found")
	case errors.Is(err, repositories.ErrPackageNotFound):
		return apperrors.NewNotFound("subscription", "add-on package not found")
	case errors.Is(err, repositories.ErrUserAddOnNotFound):
		return apperrors.NewNotFound("subscription", "add-on not owned by user")
	case errors.Is(err, repositories.ErrFileNotFound):
		return apperrors.NewNotFound("file", "file not found")
	case errors.Is(err, repositories.ErrSubscriptionNotFound):
		return apperrors.NewNotFound("subscription", "subscription not found")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound(err)
	}
	return apperrors.InternalError(err)
}
