package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/models"
)

func TestPresignImageUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	propertyService := new(MockPropertyService)
	propertyService.On("FindPropertyByID", mock.Anything, "p1").
		Return(&models.Property{ID: "p1"}, nil)
	storageService := new(MockStorageService)
	storageService.On("GeneratePresignedPutURL", mock.Anything, "p1", "kitchen.jpg", "image/jpeg").
		Return("https://s3.example.com/put", "properties/p1/uploads/abc_kitchen.jpg", nil)

	handler := NewRestPropertyHandler(propertyService, storageService, new(MockAsynqClient))
	router := gin.New()
	router.POST("/v1/property/:id/image/presign", handler.PresignImageUpload)

	body := `{"filename":"kitchen.jpg","content_type":"image/jpeg"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/property/p1/image/presign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://s3.example.com/put", resp["upload_url"])
	assert.Equal(t, "properties/p1/uploads/abc_kitchen.jpg", resp["s3_key"])
	storageService.AssertExpectations(t)
}

func TestPresignImageUploadMissingProperty(t *testing.T) {
	gin.SetMode(gin.TestMode)

	propertyService := new(MockPropertyService)
	propertyService.On("FindPropertyByID", mock.Anything, "missing").
		Return(nil, mongo.ErrNoDocuments)

	handler := NewRestPropertyHandler(propertyService, new(MockStorageService), new(MockAsynqClient))
	router := gin.New()
	router.POST("/v1/property/:id/image/presign", handler.PresignImageUpload)

	body := `{"filename":"kitchen.jpg","content_type":"image/jpeg"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/property/missing/image/presign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcessImageEnqueuesTask(t *testing.T) {
	gin.SetMode(gin.TestMode)

	taskClient := new(MockAsynqClient)
	taskClient.On("EnqueueContext", mock.Anything, mock.AnythingOfType("*asynq.Task")).
		Return(&asynq.TaskInfo{ID: "task-42"}, nil)

	handler := NewRestPropertyHandler(new(MockPropertyService), new(MockStorageService), taskClient)
	router := gin.New()
	router.POST("/v1/property/:id/image/process", handler.ProcessImage)

	body := `{"s3_key":"properties/p1/uploads/abc_kitchen.jpg"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/property/p1/image/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-42", resp["task_id"])
	taskClient.AssertExpectations(t)
}
