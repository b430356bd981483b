package model

// Queue names. Shared wire contract between the three services.
const (
	QueuePayment      = "M!PAYMENT"
	QueueNotification = "E!SEND_SOCKET"
)

// PaymentMessage payment request message for MQ. Immutable once published;
// published only after the corresponding stock decrement has committed.
type PaymentMessage struct {
	UserID      uint64 `json:"userId"`      // User ID
	ProductID   uint64 `json:"productId"`   // Product ID
	ProductName string `json:"productName"` // Product name at checkout time
	Qty         int    `json:"qty"`         // Quantity
	Price       int64  `json:"price"`       // Unit price at checkout time
}

// NotificationMessage notification message for MQ. Published once per
// committed payment record, consumed at-least-once by the fan-out service.
type NotificationMessage struct {
	UserID    uint64 `json:"userId"`    // User ID
	ProductID uint64 `json:"productId"` // Product ID
	Qty       int    `json:"qty"`       // Quantity
	Bill      int64  `json:"bill"`      // Total bill (price * qty)
}
