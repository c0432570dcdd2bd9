package attachment

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for form boundaries and headers around the file itself.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	storage  *LocalStorage
	maxBytes int64
	logger   *zap.Logger
}

func NewUploadHandler(storage *LocalStorage, maxBytes int64, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{storage: storage, maxBytes: maxBytes, logger: logger.Named("attachment")}
}

// UploadFile stores a message attachment and returns the URL to reference from a send request.
// POST /upload/:category
func (h *UploadHandler) UploadFile(c *gin.Context) {
	category, err := ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided", "code": "validation_error"})
		return
	}
	if header.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload size limit", "code": "validation_error", "maxBytes": h.maxBytes})
		return
	}

	contentType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || !category.Allows(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed: " + header.Header.Get("Content-Type"), "code": "validation_error"})
		return
	}

	dst, url, err := h.storage.Reserve(category, header.Filename)
	if err != nil {
		h.logger.Error("failed to reserve upload", zap.String("category", string(category)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}
	if err := c.SaveUploadedFile(header, dst); err != nil {
		h.logger.Error("failed to save upload", zap.String("path", dst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":  url,
		"name": header.Filename,
		"type": contentType,
		"size": header.Size,
	})
}
