package handler

import (
	"net/http"

	"givebox/backend/internal/presence"

	"github.com/gin-gonic/gin"
)

type setPresenceRequest struct {
	Online *bool `json:"online" binding:"required"`
}

func (h *Handler) SetPresence(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	var req setPresenceRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Presence.SetOnline(c.Request.Context(), callerID(c), convID, *req.Online); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPresence(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		return
	}
	peers, err := h.Presence.Peers(c.Request.Context(), callerID(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	if peers == nil {
		peers = []presence.PeerStatus{}
	}
	c.JSON(http.StatusOK, gin.H{"peers": peers})
}
