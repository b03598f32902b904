package seatmap

import (
	"errors"
	"net/http"

	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) GetSeatMap(ctx *gin.Context) {
	screenID := ctx.Param("id")
	if screenID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID is required", nil, "missing screen ID")
		return
	}

	doc, err := c.service.GetSeatMap(ctx.Request.Context(), screenID)
	if err != nil {
		if errors.Is(err, ErrLayoutNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Screen layout not found", nil, err.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get seat map", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", doc, nil)
}

func (c *Controller) SaveLayout(ctx *gin.Context) {
	screenID := ctx.Param("id")
	if screenID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID is required", nil, "missing screen ID")
		return
	}

	var req LayoutConfig
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	doc, warnings, err := c.service.SaveLayout(ctx.Request.Context(), screenID, req)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid layout configuration", nil, cfgErr.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to save layout", nil, err.Error())
		return
	}

	data := gin.H{"layout": doc}
	if len(warnings) > 0 {
		data["warnings"] = warnings
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Layout saved successfully", data, nil)
}

func (c *Controller) UpsertOverrides(ctx *gin.Context) {
	screenID := ctx.Param("id")
	if screenID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID is required", nil, "missing screen ID")
		return
	}

	// Body maps seat keys ("D-6") to partial overrides.
	var req map[string]SeatOverride
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}
	if len(req) == 0 {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "At least one seat override is required", nil, "empty override set")
		return
	}

	doc, err := c.service.UpsertOverrides(ctx.Request.Context(), screenID, req)
	if err != nil {
		if errors.Is(err, ErrLayoutNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Screen layout not found", nil, err.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to apply seat overrides", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat overrides applied successfully", doc, nil)
}

func (c *Controller) ResetOverrides(ctx *gin.Context) {
	screenID := ctx.Param("id")
	if screenID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Screen ID is required", nil, "missing screen ID")
		return
	}

	doc, err := c.service.ResetOverrides(ctx.Request.Context(), screenID)
	if err != nil {
		if errors.Is(err, ErrLayoutNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Screen layout not found", nil, err.Error())
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to reset seat overrides", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat overrides reset successfully", doc, nil)
}
