package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/validator"
	"timetodo_backend/pkg/apperrors"
	"timetodo_backend/pkg/contextkeys"
)

// ============================================================================
// 1. Базовая структура обработчика
// ============================================================================

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// GetDB - пул или транзакция, выставленные DBMiddleware.
// Отсутствие значения - ошибка сборки роутера, поэтому паника.
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	switch db := c.Value(string(contextkeys.DBContextKey)).(type) {
	case *gorm.DB:
		return db
	case nil:
		logger.CtxError(c.Request.Context(), "db missing in gin context", "route", c.FullPath())
		panic("handlers: DBMiddleware is not installed")
	default:
		logger.CtxError(c.Request.Context(), "db in gin context has unexpected type", "type", fmt.Sprintf("%T", db))
		panic(fmt.Sprintf("handlers: expected *gorm.DB in context, got %T", db))
	}
}

// ============================================================================
// 2. Привязка и валидация
// ============================================================================

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	return h.bind(c, obj, "body", c.ShouldBindJSON)
}

func (h *BaseHandler) BindAndValidate_Query(c *gin.Context, obj interface{}) bool {
	return h.bind(c, obj, "query", c.ShouldBindQuery)
}

// BindAndValidate_Form - multipart/form-data (загрузка файлов)
func (h *BaseHandler) BindAndValidate_Form(c *gin.Context, obj interface{}) bool {
	return h.bind(c, obj, "form", c.ShouldBind)
}

func (h *BaseHandler) bind(c *gin.Context, obj interface{}, source string, bindFn func(interface{}) error) bool {
	if err := bindFn(obj); err != nil {
		logger.CtxWithError(c.Request.Context(), "failed to bind request", err, "source", source, "path", c.FullPath())
		apperrors.HandleError(c, apperrors.NewBadRequestError(fmt.Sprintf("Invalid request %s: %v", source, err)))
		return false
	}
	return h.validate(c, obj, source)
}

func (h *BaseHandler) validate(c *gin.Context, obj interface{}, source string) bool {
	err := h.validator.Validate(obj)
	if err == nil {
		return true
	}

	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		logger.CtxWarn(c.Request.Context(), "request validation failed", "source", source, "fields", vErr.Errors)
		apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		return false
	}
	logger.CtxWithError(c.Request.Context(), "validator misconfigured", err, "source", source)
	apperrors.HandleError(c, apperrors.InternalError(err))
	return false
}

// ============================================================================
// 3. Обработка ошибок сервисов
// ============================================================================

// HandleServiceError пишет ответ по ошибке сервиса.
// AppError уходит как есть, все прочее превращается в 500.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		logger.CtxWithError(c.Request.Context(), "unexpected service error", err, "route", c.FullPath())
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}

	attrs := []any{"code", appErr.Code, "message", appErr.Message, "route", c.FullPath()}
	if appErr.Details != nil {
		attrs = append(attrs, "details", appErr.Details)
	}
	if appErr.HTTPCode >= 500 {
		logger.CtxError(c.Request.Context(), "service failed", append(attrs, "error", appErr.Err)...)
	} else {
		logger.CtxWarn(c.Request.Context(), "request rejected by service", attrs...)
	}
	apperrors.HandleError(c, appErr)
}

// ============================================================================
// 4. Вспомогательные функции
// ============================================================================

// GetAndAuthorizeUserID - id вызывающего, проставленный AuthMiddleware
func (h *BaseHandler) GetAndAuthorizeUserID(c *gin.Context) (string, bool) {
	userID, _ := c.Get(contextkeys.UserIDKey)
	if id, ok := userID.(string); ok && id != "" {
		return id, true
	}

	logger.CtxWarn(c.Request.Context(), "unauthenticated request reached protected handler",
		"path", c.FullPath(),
		"ip", c.ClientIP(),
	)
	apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
	return "", false
}

// ParseUUIDParam - path-параметр, который должен быть uuid
func ParseUUIDParam(c *gin.Context, key string) (string, error) {
	value := c.Param(key)
	if value == "" {
		return "", apperrors.NewBadRequestError("Missing required path parameter: " + key)
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", apperrors.NewBadRequestError("Invalid path parameter: " + key + " is not a valid UUID")
	}
	return value, nil
}

// ParseOptionalTime принимает RFC3339 или YYYY-MM-DD. Пустое значение - nil.
func ParseOptionalTime(c *gin.Context, key string) (*time.Time, error) {
	valueStr := c.Query(key)
	if valueStr == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, valueStr); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewBadRequestError("Invalid " + key + " format. Use RFC3339 or YYYY-MM-DD")
}
