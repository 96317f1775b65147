package apperrors

import (
	"fmt"
	"net/http"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для общих ошибок бизнес-логики и домена.
*/

// =========================================================================
// Фабричные ФУНКЦИИ (оборачивание ошибок из репозитория)
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// NewNotFound - "не найдено" с доменом и понятным сообщением
func NewNotFound(domain, message string) *AppError {
	return New(CodeNotFound, domain, message, http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// NewValidation - ошибка валидации входных параметров сервиса (не DTO)
func NewValidation(field, message string) *AppError {
	return ValidationError(map[string]string{field: message})
}

// ErrLimitExceeded - загрузка отклонена лимитами тарифа (403).
// reason уходит в details без изменений.
func ErrLimitExceeded(reason LimitReason, message string) *AppError {
	return New(CodeLimitExceeded, "subscription", message, http.StatusForbidden).
		WithDetails(map[string]string{"reason": string(reason)})
}

// ErrMetricsCalculation оборачивает ошибку расчета метрик.
// Код и HTTP-статус берутся из исходной ошибки (validation / not found),
// сама ошибка кладется в details.
func ErrMetricsCalculation(scope, id string, err error) *AppError {
	out := Wrap(err, CodeInternalError, "analytics",
		fmt.Sprintf("could not compute metrics for %s %s", scope, id),
		http.StatusInternalServerError)

	if inner, ok := AsAppError(err); ok {
		out.Code = inner.Code
		out.HTTPCode = inner.HTTPCode
		out.Details = map[string]interface{}{
			"cause":   inner.Message,
			"details": inner.Details,
		}
	}
	return out
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ
// =========================================================================

// ErrInsufficientPermissions - не-суперпользователь пытается выполнить админ-действие.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrInvalidToken - неверный или просроченный токен.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrRateLimited - превышен лимит запросов.
var ErrRateLimited = New(
	CodeTooManyCalls,
	"request",
	"Rate limit exceeded. Please try again later.",
	http.StatusTooManyRequests,
)
