package handler

import (
	"net/http"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"

	"github.com/gin-gonic/gin"
)

const defaultNotificationLimit = 50

type notifyRequest struct {
	RecipientID      string  `json:"recipient_id" binding:"required"`
	Title            string  `json:"title"`
	Body             string  `json:"body"`
	Type             string  `json:"type"`
	RelatedListingID *string `json:"related_listing_id"`
	RelatedRequestID *string `json:"related_request_id"`
	SendPush         bool    `json:"send_push"`
}

type pushRequest struct {
	RecipientIDs []string `json:"recipient_ids"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	URL          string   `json:"url"`
	Type         string   `json:"type"`
}

type preferencesRequest struct {
	PushEnabled *bool    `json:"push_enabled" binding:"required"`
	MutedTypes  []string `json:"muted_types"`
}

func (h *Handler) Notify(c *gin.Context) {
	var req notifyRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Notifier.Notify(c.Request.Context(), callerID(c), notify.Request{
		RecipientID:      req.RecipientID,
		Title:            req.Title,
		Body:             req.Body,
		Type:             req.Type,
		RelatedListingID: req.RelatedListingID,
		RelatedRequestID: req.RelatedRequestID,
		SendPush:         req.SendPush,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) SendPush(c *gin.Context) {
	var req pushRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Notifier.Push(c.Request.Context(), callerID(c), notify.PushRequest{
		RecipientIDs: req.RecipientIDs,
		Title:        req.Title,
		Body:         req.Body,
		URL:          req.URL,
		Type:         req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	limit, ok := limitQuery(c, defaultNotificationLimit)
	if !ok {
		return
	}
	list, err := h.Notifications.ListNotifications(c.Request.Context(), callerID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	err := h.Notifications.MarkNotificationRead(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.Notifications.MarkAllNotificationsRead(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID := callerID(c)
	prefs, err := h.Notifications.GetPreferences(c.Request.Context(), []string{userID})
	if err != nil {
		respondError(c, err)
		return
	}
	pref, ok := prefs[userID]
	if !ok {
		pref = models.DefaultPreference(userID)
	}
	c.JSON(http.StatusOK, pref)
}

func (h *Handler) SavePreferences(c *gin.Context) {
	var req preferencesRequest
	if !bindJSON(c, &req) {
		return
	}
	var unknown []string
	for _, t := range req.MutedTypes {
		if !isNotificationType(t) {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) > 0 {
		respondError(c, apperr.Invalid("unknown notification types %v", unknown))
		return
	}

	pref := &models.NotificationPreference{
		UserID:      callerID(c),
		PushEnabled: *req.PushEnabled,
		MutedTypes:  models.StringList(req.MutedTypes),
	}
	if err := h.Notifications.SavePreference(c.Request.Context(), pref); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func isNotificationType(t string) bool {
	return config.NotificationTypes[t]
}
