package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AcceptRequest lets the listing owner accept a pending request, which opens
// the conversation. Accepting an already accepted request is a no-op.
func (h *Handler) AcceptRequest(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		respondError(c, apperr.Invalid("request id %q is not a uuid", requestID))
		return
	}

	conv, err := h.Requests.GetConversation(ctx, requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	if conv.OwnerID != callerID(c) {
		respondError(c, fmt.Errorf("only the listing owner can accept: %w", apperr.ErrForbidden))
		return
	}

	switch conv.Status {
	case models.RequestAccepted:
		c.JSON(http.StatusOK, gin.H{"id": conv.ID, "status": conv.Status})
		return
	case models.RequestPending:
	default:
		respondError(c, apperr.Invalid("request is %s", conv.Status))
		return
	}

	if err := h.Requests.UpdateRequestStatus(ctx, requestID, models.RequestAccepted); err != nil {
		respondError(c, err)
		return
	}
	conv.Status = models.RequestAccepted
	slog.InfoContext(ctx, "request accepted", "request_id", conv.ID, "listing_id", conv.ListingID)

	h.notifyRequester(c, conv)
	c.JSON(http.StatusOK, gin.H{"id": conv.ID, "status": conv.Status})
}

// notifyRequester is the best-effort notification after an accept. The
// accept itself already succeeded, so failures are only logged.
func (h *Handler) notifyRequester(c *gin.Context, conv *models.Conversation) {
	requestID, listingID := conv.ID, conv.ListingID
	_, err := h.Notifier.Notify(c.Request.Context(), conv.OwnerID, notify.Request{
		RecipientID:      conv.RequesterID,
		Title:            "Your request was accepted",
		Body:             "You can now chat with the owner and arrange the pickup.",
		Type:             "request_accepted",
		RelatedListingID: &listingID,
		RelatedRequestID: &requestID,
		SendPush:         true,
	})
	if err != nil {
		slog.WarnContext(c.Request.Context(), "acceptance notification failed", "request_id", conv.ID, "error", err)
	}
}
