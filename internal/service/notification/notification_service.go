package notification

import (
	"fmt"

	"shopflow/internal/model"
	"shopflow/internal/monitor"
	"shopflow/pkg/log"
)

// Broadcaster pushes a rendered message to connected clients
type Broadcaster interface {
	Broadcast(message string) int
}

// Service notification service interface
type Service interface {
	// Notify broadcasts a notification to all open connections and
	// returns how many received it.
	Notify(msg *model.NotificationMessage) int

	// NotifyTest sends a fixed test notification
	NotifyTest() int
}

type service struct {
	hub Broadcaster
}

// NewService creates a notification service
func NewService(hub Broadcaster) Service {
	return &service{hub: hub}
}

// FormatMessage renders the client-facing notification text
func FormatMessage(msg *model.NotificationMessage) string {
	return fmt.Sprintf("Notification for user %d: Product ID %d, Quantity %d, Total Bill: %d",
		msg.UserID, msg.ProductID, msg.Qty, msg.Bill)
}

func (s *service) Notify(msg *model.NotificationMessage) int {
	delivered := s.hub.Broadcast(FormatMessage(msg))

	monitor.BroadcastTotal.Inc()
	monitor.BroadcastDeliveredTotal.Add(float64(delivered))

	log.WithFields(map[string]interface{}{
		"user_id":   msg.UserID,
		"delivered": delivered,
	}).Info("Notification broadcast")

	return delivered
}

func (s *service) NotifyTest() int {
	return s.Notify(&model.NotificationMessage{
		UserID:    1,
		ProductID: 2,
		Qty:       3,
		Bill:      300000,
	})
}
