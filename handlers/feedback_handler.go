package handlers

import (
	"net/http"

	"keystone-backend/models"
	"keystone-backend/repository"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler handles HTTP requests for reviewer feedback
type FeedbackHandler struct {
	feedbackRepo *repository.FeedbackRepository
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackRepo *repository.FeedbackRepository) *FeedbackHandler {
	return &FeedbackHandler{feedbackRepo: feedbackRepo}
}

// CreateFeedbackRequest represents the request body for submitting feedback
type CreateFeedbackRequest struct {
	StrategyDescription string  `json:"strategy_description" binding:"required"`
	Rating              int     `json:"rating" binding:"required"`
	Comments            *string `json:"comments"`
}

// CreateFeedback handles POST /api/feedback
func (h *FeedbackHandler) CreateFeedback(c *gin.Context) {
	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_RATING",
				"message": "rating must be between 1 and 5",
			},
		})
		return
	}

	fb := &models.Feedback{
		StrategyDescription: req.StrategyDescription,
		Rating:              req.Rating,
		Comments:            req.Comments,
	}

	if err := h.feedbackRepo.Create(c.Request.Context(), fb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    fb,
	})
}

// ListFeedback handles GET /api/feedback
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	entries, err := h.feedbackRepo.List(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}
