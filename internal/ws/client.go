package ws

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"shopflow/pkg/log"
)

const (
	stateOpen int32 = iota
	stateClosed
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The notification stream is public; origin checks are left to the
	// deployment's proxy layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is a single real-time connection
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	state int32
	once  sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Open reports whether the connection is still in the OPEN state
func (c *Client) Open() bool {
	return atomic.LoadInt32(&c.state) == stateOpen
}

// trySend queues a payload for the client without blocking. Returns false
// for closed clients and for clients whose send buffer is full.
func (c *Client) trySend(payload []byte) bool {
	if !c.Open() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		atomic.StoreInt32(&c.state, stateClosed)
		c.hub.Unregister(c)
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients never send application data; the read loop only detects
	// disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it with the hub
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Warn("WebSocket upgrade failed")
			return
		}

		client := newClient(hub, conn)
		hub.Register(client)

		log.WithFields(map[string]interface{}{
			"remote":  conn.RemoteAddr().String(),
			"clients": hub.Count(),
		}).Info("WebSocket client connected")

		go client.writePump()
		go client.readPump()
	}
}
