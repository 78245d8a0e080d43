package handlers

import (
	"errors"
	"net/http"

	"keystone-backend/models"
	"keystone-backend/service"

	"github.com/gin-gonic/gin"
)

// ReasonHandler handles HTTP requests for the reasoning engine
type ReasonHandler struct {
	reasonService *service.ReasonService
}

// NewReasonHandler creates a new reason handler
func NewReasonHandler(reasonService *service.ReasonService) *ReasonHandler {
	return &ReasonHandler{reasonService: reasonService}
}

// ReasonRequest represents the request body for a reasoning call
type ReasonRequest struct {
	Facts            []string `json:"facts"`
	JurisdictionTags []string `json:"jurisdiction_tags"`
	FreeText         string   `json:"free_text"`

	Config *ReasonConfigOverrides `json:"config,omitempty"`
}

// ReasonConfigOverrides carries optional per-request tuning; omitted fields
// keep the engine defaults.
type ReasonConfigOverrides struct {
	LimitLegal            *int     `json:"limit_legal,omitempty"`
	LimitPrinciple        *int     `json:"limit_principle,omitempty"`
	LowThreshold          *float64 `json:"low_threshold,omitempty"`
	HighThreshold         *float64 `json:"high_threshold,omitempty"`
	ConflictConfidenceCap *float64 `json:"conflict_confidence_cap,omitempty"`
	RelevanceFloor        *float64 `json:"relevance_floor,omitempty"`
}

// Reason handles POST /api/reason
func (h *ReasonHandler) Reason(c *gin.Context) {
	var req ReasonRequest
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

	query := models.Query{
		Facts:            req.Facts,
		JurisdictionTags: req.JurisdictionTags,
		FreeText:         req.FreeText,
	}

	cfg := service.DefaultReasonConfig()
	if req.Config != nil {
		applyOverrides(&cfg, req.Config)
	}

	results, err := h.reasonService.ReasonAbout(c.Request.Context(), query, cfg)
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
		"data":    results,
	})
}

func applyOverrides(cfg *service.ReasonConfig, o *ReasonConfigOverrides) {
	if o.LimitLegal != nil {
		cfg.LimitLegal = *o.LimitLegal
	}
	if o.LimitPrinciple != nil {
		cfg.LimitPrinciple = *o.LimitPrinciple
	}
	if o.LowThreshold != nil {
		cfg.LowThreshold = *o.LowThreshold
	}
	if o.HighThreshold != nil {
		cfg.HighThreshold = *o.HighThreshold
	}
	if o.ConflictConfidenceCap != nil {
		cfg.ConflictConfidenceCap = *o.ConflictConfidenceCap
	}
	if o.RelevanceFloor != nil {
		cfg.RelevanceFloor = *o.RelevanceFloor
	}
}

// classifyError maps the engine's error taxonomy onto HTTP status codes.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	case errors.Is(err, models.ErrNoRulesConfigured):
		return http.StatusInternalServerError, "NO_RULES_CONFIGURED"
	case errors.Is(err, models.ErrGenerationUnavailable):
		return http.StatusBadGateway, "GENERATION_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "REASONING_FAILED"
	}
}
