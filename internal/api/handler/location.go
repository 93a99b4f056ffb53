package handler

import (
	"net/http"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type startLocationRequest struct {
	Latitude        *float64 `json:"latitude" binding:"required"`
	Longitude       *float64 `json:"longitude" binding:"required"`
	DurationMinutes int      `json:"duration_minutes"`
}

type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (h *Handler) StartLocation(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	var req startLocationRequest
	if !bindJSON(c, &req) {
		return
	}
	// Checked in minutes so the conversion below cannot overflow.
	if req.DurationMinutes < 0 || req.DurationMinutes > int(config.MaxShareDuration/time.Minute) {
		respondError(c, apperr.Invalid("duration_minutes must be between 0 and %d", int(config.MaxShareDuration/time.Minute)))
		return
	}
	d := time.Duration(req.DurationMinutes) * time.Minute

	loc, err := h.Locations.Start(c.Request.Context(), callerID(c), convID, *req.Latitude, *req.Longitude, d)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	var req updateLocationRequest
	if !bindJSON(c, &req) {
		return
	}
	loc, err := h.Locations.Update(c.Request.Context(), callerID(c), convID, *req.Latitude, *req.Longitude)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h *Handler) StopLocation(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	stopped, err := h.Locations.Stop(c.Request.Context(), callerID(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": stopped})
}

func (h *Handler) ListLocations(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	locs, err := h.Locations.Active(c.Request.Context(), callerID(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	if locs == nil {
		locs = []models.LiveLocation{}
	}
	c.JSON(http.StatusOK, gin.H{"locations": locs})
}
