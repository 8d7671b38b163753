package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/models"
	"github.com/Idosegev23/homeruncms-sub000/internal/services"
)

// RestCustomerHandler handles REST requests related to customers.
type RestCustomerHandler struct {
	customerService services.ICustomerService
}

// NewRestCustomerHandler creates a new RestCustomerHandler.
func NewRestCustomerHandler(customerService services.ICustomerService) *RestCustomerHandler {
	return &RestCustomerHandler{customerService: customerService}
}

// CreateCustomer handles POST /v1/customer
func (h *RestCustomerHandler) CreateCustomer(c *gin.Context) {
	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	created, err := h.customerService.CreateCustomer(c.Request.Context(), &customer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetCustomerByID handles GET /v1/customer/:id
func (h *RestCustomerHandler) GetCustomerByID(c *gin.Context) {
	customer, err := h.customerService.FindCustomerByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve customer"})
		}
		return
	}
	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer handles PUT /v1/customer/:id
func (h *RestCustomerHandler) UpdateCustomer(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	updated, err := h.customerService.UpdateCustomer(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCustomer handles DELETE /v1/customer/:id
func (h *RestCustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customerService.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCustomers handles GET /v1/customer
func (h *RestCustomerHandler) ListCustomers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	customers, err := h.customerService.ListCustomers(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list customers"})
		return
	}
	c.JSON(http.StatusOK, customers)
}
