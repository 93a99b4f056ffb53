package router

import (
	"net/http"

	"givebox/backend/internal/api/handler"
	"givebox/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, h *handler.Handler, verifier auth.Verifier) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireUser := auth.RequireUser(verifier)
	router.GET("/ws", requireUser, h.ServeWebSocket)

	v1 := router.Group("/api/v1", requireUser)
	{
		v1.POST("/auth/refresh", h.RefreshToken)
		ConversationRouter(v1.Group("/conversations/:id"), h)
		NotificationRouter(v1.Group("/notifications"), h)
		PushRouter(v1.Group("/push"), h)
		v1.POST("/requests/:id/accept", h.AcceptRequest)
	}
}

func ConversationRouter(rg *gin.RouterGroup, h *handler.Handler) {
	rg.POST("/messages", h.SendMessage)
	rg.GET("/messages", h.ListMessages)
	rg.POST("/read", h.MarkRead)

	rg.PUT("/presence", h.SetPresence)
	rg.GET("/presence", h.ListPresence)

	rg.POST("/location", h.StartLocation)
	rg.PATCH("/location", h.UpdateLocation)
	rg.DELETE("/location", h.StopLocation)
	rg.GET("/locations", h.ListLocations)
}

func NotificationRouter(rg *gin.RouterGroup, h *handler.Handler) {
	rg.POST("", h.Notify)
	rg.GET("", h.ListNotifications)
	rg.POST("/read-all", h.MarkAllNotificationsRead)
	rg.GET("/preferences", h.GetPreferences)
	rg.PUT("/preferences", h.SavePreferences)
	rg.POST("/:id/read", h.MarkNotificationRead)
}

func PushRouter(rg *gin.RouterGroup, h *handler.Handler) {
	rg.POST("/send", h.SendPush)
	rg.POST("/subscriptions", h.SavePushSubscription)
	rg.DELETE("/subscriptions", h.DeletePushSubscription)
	rg.GET("/vapid-key", h.VAPIDKey)
	rg.POST("/telegram/link", h.TelegramLink)
}
