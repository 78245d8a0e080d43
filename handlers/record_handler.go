package handlers

import (
	"errors"
	"net/http"

	"keystone-backend/models"
	"keystone-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecordHandler handles HTTP requests for individual knowledge records
type RecordHandler struct {
	legalStore     service.RecordStore
	principleStore service.RecordStore
}

// NewRecordHandler creates a new record handler over both collections
func NewRecordHandler(legalStore, principleStore service.RecordStore) *RecordHandler {
	return &RecordHandler{
		legalStore:     legalStore,
		principleStore: principleStore,
	}
}

// GetRecord handles GET /api/records/:id. The legal collection is consulted
// first; the principle collection only when the id is not found there.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid record ID format",
			},
		})
		return
	}

	rec, err := h.legalStore.Get(c.Request.Context(), id)
	if err != nil && errors.Is(err, models.ErrNotFound) {
		rec, err = h.principleStore.Get(c.Request.Context(), id)
	}
	if err != nil {
		status, code := classifyError(err)
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rec,
	})
}
