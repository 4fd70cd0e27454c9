package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quillchat/internal/infrastructure/metrics"
	"quillchat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client represents a WebSocket connection client. Send is never closed;
// done is closed once the client leaves the manager.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue queues message without blocking and reports whether it was queued.
func (c *Client) enqueue(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// Manager manages all active WebSocket connections. A user may hold several
// connections at once.
type Manager struct {
	clients    map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	stopped    chan struct{}
	mutex      sync.RWMutex
}

// NewManager creates a new WebSocket connection manager
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		defer m.closeAll()
		for {
			select {
			case client := <-m.Register:
				m.add(client)
				metrics.IncWSActive()
				logger.Debug("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				if m.remove(client) {
					client.close()
					metrics.DecWSActive()
					logger.Debug("Client unregistered: %s", client.UserID)
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	clients := m.clients
	m.clients = make(map[string]map[*Client]bool)
	close(m.stopped)
	m.mutex.Unlock()

	for _, conns := range clients {
		for client := range conns {
			client.close()
			metrics.DecWSActive()
		}
	}
}

// Connect registers client and reports false once the manager has stopped.
func (m *Manager) Connect(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.stopped:
		client.close()
		return false
	}
}

// Disconnect unregisters client. After the manager has stopped it only
// closes the client.
func (m *Manager) Disconnect(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.stopped:
		client.close()
	}
}

func (m *Manager) add(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.clients[client.UserID]; !ok {
		m.clients[client.UserID] = make(map[*Client]bool)
	}
	m.clients[client.UserID][client] = true
}

func (m *Manager) remove(client *Client) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	conns, ok := m.clients[client.UserID]
	if !ok || !conns[client] {
		return false
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
	return true
}

// SendToUser queues message on every connection of userID. Connections whose
// buffer is full are dropped.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.clients[userID] {
		if !client.enqueue(message) {
			logger.Warn("websocket send buffer full, dropping client: %s", userID)
			go m.Disconnect(client)
		}
	}
}

// ConnectionCount returns the number of open connections of userID.
func (m *Manager) ConnectionCount(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

// ReadPump reads intents from the WebSocket connection until it closes.
func (c *Client) ReadPump(ctx context.Context, m *Manager, handler IntentHandler) {
	defer func() {
		m.Disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		if reply := c.handleMessage(ctx, handler, message); reply != nil && !c.enqueue(reply) {
			log.Printf("websocket reply dropped for %s", c.UserID)
		}
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("error: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Push encodes data as a frame of messageType and sends it to every
// connection of userID.
func (m *Manager) Push(userID, messageType string, data interface{}) {
	if m.ConnectionCount(userID) == 0 {
		return
	}

	frame, err := NewMessage(messageType, data)
	if err != nil {
		log.Printf("Push Error: failed to encode %s for %s: %v", messageType, userID, err)
		return
	}
	m.SendToUser(userID, frame)
}
