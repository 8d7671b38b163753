package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/services"
)

// RestMatchHandler handles match scoring and ranking requests.
type RestMatchHandler struct {
	matchService services.IMatchService
}

// NewRestMatchHandler creates a new RestMatchHandler.
func NewRestMatchHandler(matchService services.IMatchService) *RestMatchHandler {
	return &RestMatchHandler{matchService: matchService}
}

// MatchesForCustomer handles GET /v1/customer/:id/matches
func (h *RestMatchHandler) MatchesForCustomer(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	ranked, err := h.matchService.MatchesForCustomer(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute matches"})
		}
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// MatchesForProperty handles GET /v1/property/:id/matches
func (h *RestMatchHandler) MatchesForProperty(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	ranked, err := h.matchService.MatchesForProperty(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute matches"})
		}
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// ScorePair handles GET /v1/match/:customer_id/:property_id
func (h *RestMatchHandler) ScorePair(c *gin.Context) {
	res, err := h.matchService.ScorePair(c.Request.Context(), c.Param("customer_id"), c.Param("property_id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer or property not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to score pair"})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}
