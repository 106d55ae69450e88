package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/anugulalokeshreddy-code/deepfake/internal/logging"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing    = "ping"
	MsgTypeRefresh = "refresh"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeState     = "state"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// WSMessage is the envelope for every WebSocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes dashboard state to every connected browser
type Hub struct {
	dash     *dashboard.Dashboard
	upgrader websocket.Upgrader
	logger   *log.Logger

	unsubscribe func()
	clients     map[*wsClient]bool
	closed      bool
	broadcast   chan []byte
	mutex       sync.RWMutex

	publishMu sync.Mutex
	published uint64
}

// NewHub creates a hub subscribed to dash. Call Run to start delivering
// messages.
func NewHub(dash *dashboard.Dashboard, logger *log.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Hub{
		dash: dash,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		logger:    logger,
		clients:   make(map[*wsClient]bool),
		broadcast: make(chan []byte, sendBuffer),
	}
	h.unsubscribe = dash.Subscribe(h.Publish)
	return h
}

// Run delivers state changes until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer h.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			h.closed = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow reader; it reconnects and fetches fresh state
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues a state message for every client. A snapshot older than
// the last one published is dropped, and the newest state wins when the
// queue is full.
func (h *Hub) Publish(v models.DashboardView) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	if v.Version < h.published {
		return
	}
	h.published = v.Version

	msg, err := encodeMessage(MsgTypeState, v)
	if err != nil {
		h.logger.Errorf("[WebSocket] Failed to encode state: %v", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		select {
		case <-h.broadcast:
		default:
		}
		select {
		case h.broadcast <- msg:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the connection, sends the current state and
// then keeps the browser in sync
func (h *Hub) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: ws, send: make(chan []byte, sendBuffer)}
	if !h.add(client) {
		ws.Close()
		return nil
	}

	go h.writePump(client)

	h.reply(client, MsgTypeConnected, nil)
	h.reply(client, MsgTypeState, h.dash.View())

	h.readPump(c.Request().Context(), client)
	return nil
}

func (h *Hub) add(client *wsClient) bool {
	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		return false
	}
	h.clients[client] = true
	n := len(h.clients)
	h.mutex.Unlock()

	h.logger.Infof("[WebSocket] Client connected. Total: %d", n)
	return true
}

func (h *Hub) remove(client *wsClient) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mutex.Unlock()

	h.logger.Infof("[WebSocket] Client disconnected. Total: %d", n)
}

func (h *Hub) readPump(ctx context.Context, client *wsClient) {
	defer func() {
		h.remove(client)
		client.conn.Close()
	}()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warnf("[WebSocket] Connection error: %v", err)
			}
			return
		}

		switch msg.Type {
		case MsgTypePing:
			h.reply(client, MsgTypePong, nil)
		case MsgTypeRefresh:
			if err := h.dash.RefreshAll(ctx); err != nil {
				h.reply(client, MsgTypeError, WSErrorResponse{Message: err.Error(), Code: "REFRESH_FAILED"})
			}
		default:
			h.reply(client, MsgTypeError, WSErrorResponse{Message: "Unknown message type: " + msg.Type, Code: "INVALID_TYPE"})
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warnf("[WebSocket] Failed to send message: %v", err)
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a message for one client without blocking the read loop
func (h *Hub) reply(client *wsClient, msgType string, payload interface{}) {
	msg, err := encodeMessage(msgType, payload)
	if err != nil {
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

func encodeMessage(msgType string, payload interface{}) ([]byte, error) {
	msg := WSMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = data
	}
	return json.Marshal(msg)
}
