package handler

import (
	"net/http"
	"strconv"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/config"
	"givebox/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	MessageType  models.MessageType `json:"message_type"`
	Content      string             `json:"content"`
	MediaRef     *string            `json:"media_ref"`
	LocationData *chat.LocationData `json:"location_data"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	payload, err := chat.ParsePayload(req.MessageType, req.Content, req.MediaRef, req.LocationData)
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.Messages.Send(c.Request.Context(), convID, callerID(c), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ListMessages(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c, config.DefaultMessageLimit)
	if !ok {
		return
	}

	var before int64
	if raw := c.Query("before"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			respondError(c, apperr.Invalid("before must be a message id"))
			return
		}
		before = n
	}

	msgs, err := h.Messages.List(c.Request.Context(), callerID(c), convID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) MarkRead(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	n, err := h.Messages.MarkRead(c.Request.Context(), convID, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
