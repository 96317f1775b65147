package apperrors

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler пишет ошибку в ответ. Без Debug сообщения 5xx заменяются общим текстом.
type GinErrorHandler struct {
	Debug bool
}

var debugErrors = true

// SetDebug вызывается при старте: в production детали 5xx скрываются
func SetDebug(debug bool) {
	debugErrors = debug
}

func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}

	if appErr.HTTPCode >= 500 {
		slog.Error("server error", "code", appErr.Code, "domain", appErr.Domain, "error", appErr.Unwrap(), "path", c.FullPath())
		if !h.Debug {
			masked := *appErr
			masked.Message = "Internal server error"
			masked.Details = nil
			appErr = &masked
		}
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

func HandleError(c *gin.Context, err error) {
	(&GinErrorHandler{Debug: debugErrors}).HandleGinError(c, err)
}
