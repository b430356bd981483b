package monitor

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline metrics shared by the three services
var (
	CheckoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopflow_checkout_total",
			Help: "Total number of checkout requests by outcome",
		},
		[]string{"status"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopflow_outbox_published_total",
			Help: "Total number of outbox messages published by queue and outcome",
		},
		[]string{"queue", "status"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopflow_messages_consumed_total",
			Help: "Total number of consumed queue messages by queue and result",
		},
		[]string{"queue", "result"},
	)

	BroadcastTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopflow_broadcast_total",
			Help: "Total number of notification broadcasts",
		},
	)

	BroadcastDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopflow_broadcast_delivered_total",
			Help: "Total number of clients that received a broadcast",
		},
	)

	BrokerReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopflow_broker_reconnects_total",
			Help: "Total number of reconnection sequences triggered by broker connection loss",
		},
	)
)

// Handler returns the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
