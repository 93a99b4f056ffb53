package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RefreshToken issues a fresh access token for the authenticated caller.
func (h *Handler) RefreshToken(c *gin.Context) {
	token, err := h.Tokens.Issue(callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": callerID(c)})
}
