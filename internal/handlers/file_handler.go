package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timetodo_backend/internal/middleware"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/pkg/apperrors"
)

// multipart-форма целиком в памяти не держится, остаток уходит во временные файлы
const maxMultipartMemory = 32 << 20

type FileHandler struct {
	*BaseHandler
	files services.FileService
}

func NewFileHandler(base *BaseHandler, files services.FileService) *FileHandler {
	return &FileHandler{
		BaseHandler: base,
		files:       files,
	}
}

func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup, g *middleware.Guards) {
	files := r.Group("/files")
	files.Use(g.Auth)
	{
		files.POST("", g.SubscriptionHeaders, h.UploadFile)
		files.GET("", h.ListFiles)
		files.DELETE("/:fileId", h.DeleteFile)
	}
}

// UploadFile - multipart, поле "file", опционально task_id / project_id
func (h *FileHandler) UploadFile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid multipart form: "+err.Error()))
		return
	}

	var req dto.UploadFileRequest
	if !h.BindAndValidate_Form(c, &req) {
		return
	}
	req.UserID = userID

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewValidation("file", "file is required"))
		return
	}
	req.File = file

	response, err := h.files.Upload(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		if reason, ok := apperrors.LimitReasonOf(err); ok {
			c.Header("X-Upload-Denied-Reason", string(reason))
		}
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

func (h *FileHandler) ListFiles(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	files, err := h.files.List(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *FileHandler) DeleteFile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	fileID, err := ParseUUIDParam(c, "fileId")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if err := h.files.Delete(c.Request.Context(), h.GetDB(c), userID, fileID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
