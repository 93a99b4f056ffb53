package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// SavePushSubscription stores the browser subscription of the caller. The
// same endpoint registered again replaces the previous row.
func (h *Handler) SavePushSubscription(c *gin.Context) {
	var req pushSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	if u, err := url.Parse(req.Endpoint); err != nil || u.Scheme != "https" {
		respondError(c, apperr.Invalid("endpoint must be an https url"))
		return
	}

	reg := &models.PushRegistration{
		UserID:   callerID(c),
		Channel:  models.PushWeb,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := h.Push.SavePushRegistration(c.Request.Context(), reg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (h *Handler) DeletePushSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Push.DeletePushRegistrationByEndpoint(c.Request.Context(), callerID(c), req.Endpoint); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) VAPIDKey(c *gin.Context) {
	if h.VAPIDPublicKey == "" {
		respondError(c, fmt.Errorf("web push is not configured: %w", apperr.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.VAPIDPublicKey})
}

// TelegramLink issues a one-time code the user sends to the bot as
// /start <code>.
func (h *Handler) TelegramLink(c *gin.Context) {
	code := uuid.NewString()
	ttl := config.TelegramLinkCodeTTL
	if err := h.Push.SaveTelegramLinkCode(c.Request.Context(), code, callerID(c), ttl); err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"code": code, "expires_in": int(ttl.Seconds())}
	if h.TelegramBotUsername != "" {
		resp["link"] = fmt.Sprintf("https://t.me/%s?start=%s", h.TelegramBotUsername, code)
	}
	c.JSON(http.StatusCreated, resp)
}
