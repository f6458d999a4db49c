package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// MaxWSConnectionsTotal caps websocket connections across all IPs.
	MaxWSConnectionsTotal = 200

	// MaxWSConnectionsPerIP caps websocket connections per source IP.
	MaxWSConnectionsPerIP = 10

	// clientSendBuffer is the per-client outbound queue. A client that
	// falls this far behind is dropped instead of stalling the feed.
	clientSendBuffer = 32

	wsWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		if IsAllowedOrigin(r.Header.Get("Origin")) {
			return true
		}
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient is one subscriber: its connection, source IP, and the
// buffered outbound queue drained by writePump.
type wsClient struct {
	conn *websocket.Conn
	ip   string
	send chan []byte
}

// writePump moves queued messages onto the wire. It exits when the hub
// closes the queue or the peer goes away, and closing the connection on
// the way out is what unblocks the read pump.
func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// Hub fans tournament events out to websocket subscribers. The client
// set is confined to the run loop goroutine; handlers talk to it only
// through channels. Start launches the loop, Stop drops every client
// and waits for it to exit.
type Hub struct {
	logger *zap.Logger

	clients    map[*wsClient]struct{}
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient

	wsLimiter *WebSocketRateLimiter
	count     atomic.Int64

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewHub creates a hub. No goroutines run until Start.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*wsClient]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the run loop. Calling it again is a no-op.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		h.started.Store(true)
		go h.run()
	})
}

// Stop closes every client connection and returns once the run loop has
// exited. Safe to call whether or not Start ever ran.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	if h.started.Load() {
		<-h.done
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			for c := range h.clients {
				h.drop(c)
			}
			h.trackClients()
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.trackClients()
			h.logger.Debug("websocket client connected",
				zap.String("ip", c.ip), zap.Int64("clients", h.count.Load()))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.trackClients()
				h.logger.Debug("websocket client disconnected",
					zap.String("ip", c.ip), zap.Int64("clients", h.count.Load()))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Queue full: the client stopped draining.
					h.drop(c)
					h.logger.Debug("websocket client dropped as slow", zap.String("ip", c.ip))
				}
			}
			h.trackClients()
		}
	}
}

// drop removes a client from the set and releases its resources.
// Closing send ends the write pump, which closes the connection, which
// ends the read pump. Only the run loop calls this.
func (h *Hub) drop(c *wsClient) {
	delete(h.clients, c)
	close(c.send)
	h.wsLimiter.Release(c.ip)
}

func (h *Hub) trackClients() {
	n := len(h.clients)
	h.count.Store(int64(n))
	UpdateWSClients(n)
}

// ClientCount returns the number of subscribed clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Broadcast queues an event for every subscriber as
// {"event": ..., "data": ...}. When the hub intake is full the event is
// dropped rather than blocking the caller.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// HandleWebSocket upgrades the request and subscribes the client to the
// event feed. The feed is one-way; inbound frames are discarded.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("ip", ip), zap.Error(err))
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{conn: conn, ip: ip, send: make(chan []byte, clientSendBuffer)}
	select {
	case h.register <- c:
	case <-h.stop:
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	go c.writePump()
	go h.readPump(c)
}

// readPump exists to notice the peer closing and unregister the client.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stop:
		}
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
