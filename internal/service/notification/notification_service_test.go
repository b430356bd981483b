package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shopflow/internal/model"
)

type recordingBroadcaster struct {
	messages  []string
	delivered int
}

func (b *recordingBroadcaster) Broadcast(message string) int {
	b.messages = append(b.messages, message)
	return b.delivered
}

func TestNotify_FormatsAndBroadcasts(t *testing.T) {
	hub := &recordingBroadcaster{delivered: 2}
	svc := NewService(hub)

	n := svc.Notify(&model.NotificationMessage{UserID: 7, ProductID: 3, Qty: 4, Bill: 400000})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Notification for user 7: Product ID 3, Quantity 4, Total Bill: 400000"}, hub.messages)
}

func TestNotify_NoClients(t *testing.T) {
	hub := &recordingBroadcaster{delivered: 0}
	svc := NewService(hub)

	n := svc.Notify(&model.NotificationMessage{UserID: 1, ProductID: 2, Qty: 3, Bill: 300000})

	assert.Equal(t, 0, n)
	assert.Len(t, hub.messages, 1)
}

func TestNotifyTest_FixedPayload(t *testing.T) {
	hub := &recordingBroadcaster{delivered: 1}
	svc := NewService(hub)

	n := svc.NotifyTest()

	assert.Equal(t, 1, n)
	assert.Equal(t, "Notification for user 1: Product ID 2, Quantity 3, Total Bill: 300000", hub.messages[0])
}
