package handlers

import (
	"net/http"
	"strconv"

	"matchme-server/internal/services"

	"github.com/gin-gonic/gin"
)

type RecommendationHandler struct {
	recommendations *services.RecommendationService
}

func NewRecommendationHandler(recommendations *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	ids, err := h.recommendations.GetRecommendations(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": ids})
}

func (h *RecommendationHandler) Dismiss(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.recommendations.DismissUser(c.Request.Context(), currentUserID(c), uint(targetID)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User dismissed"})
}
