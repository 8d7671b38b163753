package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/models"
	"github.com/Idosegev23/homeruncms-sub000/internal/services"
	"github.com/Idosegev23/homeruncms-sub000/internal/storage"
	"github.com/Idosegev23/homeruncms-sub000/internal/tasks"
)

// IAsynqClient is the subset of asynq.Client the handlers need.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestPropertyHandler handles REST requests related to properties.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
	storageService  storage.IS3Storage
	taskClient      IAsynqClient
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(propertyService services.IPropertyService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestPropertyHandler {
	return &RestPropertyHandler{
		propertyService: propertyService,
		storageService:  storageService,
		taskClient:      taskClient,
	}
}

// CreateProperty handles POST /v1/property
func (h *RestPropertyHandler) CreateProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	created, err := h.propertyService.CreateProperty(c.Request.Context(), &property)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetPropertyByID handles GET /v1/property/:id
func (h *RestPropertyHandler) GetPropertyByID(c *gin.Context) {
	property, err := h.propertyService.FindPropertyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve property"})
		}
		return
	}
	c.JSON(http.StatusOK, property)
}

// UpdateProperty handles PUT /v1/property/:id
func (h *RestPropertyHandler) UpdateProperty(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	updated, err := h.propertyService.UpdateProperty(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProperty handles DELETE /v1/property/:id
func (h *RestPropertyHandler) DeleteProperty(c *gin.Context) {
	if err := h.propertyService.DeleteProperty(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListProperties handles GET /v1/property
func (h *RestPropertyHandler) ListProperties(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	properties, err := h.propertyService.ListProperties(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list properties"})
		return
	}
	c.JSON(http.StatusOK, properties)
}

type presignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignImageUpload handles POST /v1/property/:id/image/presign
// Returns a pre-signed PUT URL and the S3 key the client must upload to.
func (h *RestPropertyHandler) PresignImageUpload(c *gin.Context) {
	propertyID := c.Param("id")
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	// Property must exist before we hand out upload URLs.
	if _, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), propertyID, req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "s3_key": key})
}

type processImageRequest struct {
	S3Key string `json:"s3_key" binding:"required"`
}

// ProcessImage handles POST /v1/property/:id/image/process
// Enqueues normalization of an uploaded photo.
func (h *RestPropertyHandler) ProcessImage(c *gin.Context) {
	propertyID := c.Param("id")
	var req processImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	task, err := tasks.NewImageProcessTask(req.S3Key, propertyID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create processing task"})
		return
	}
	info, err := h.taskClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue processing task"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID})
}
