package handler

import (
	"github.com/gin-gonic/gin"

	"shopflow/internal/service/notification"
	"shopflow/pkg/utils"
)

// NotificationHandler notification handler
type NotificationHandler struct {
	notificationService notification.Service
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notificationService notification.Service) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// Test broadcasts a fixed test notification to all connected clients
func (h *NotificationHandler) Test(c *gin.Context) {
	delivered := h.notificationService.NotifyTest()
	utils.SuccessResponse(c, gin.H{
		"message":   "Test notification sent",
		"delivered": delivered,
	})
}
