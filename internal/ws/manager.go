package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one WebSocket connection bound to a player id.
type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	send     chan []byte
}

// ConnectionManager tracks active WebSocket connections per player. A
// second connection for the same player replaces the first.
type ConnectionManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewConnectionManager creates and starts a connection manager.
func NewConnectionManager(logger *zap.Logger) *ConnectionManager {
	m := &ConnectionManager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Named("ConnectionManager"),
	}
	go m.run()
	return m
}

func (m *ConnectionManager) run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if old, ok := m.clients[client.PlayerID]; ok {
				m.logger.Debug("Replacing existing connection", zap.String("playerID", client.PlayerID))
				close(old.send)
				_ = old.Conn.Close()
			}
			m.clients[client.PlayerID] = client
			m.mu.Unlock()
			m.logger.Debug("Client registered", zap.String("playerID", client.PlayerID))

		case client := <-m.unregister:
			m.mu.Lock()
			// A reconnect replaces the map entry before the old
			// connection's pumps exit; only the current client may
			// remove it, or the stale teardown would evict (and
			// close the send channel of) its replacement.
			if current, ok := m.clients[client.PlayerID]; ok && current == client {
				delete(m.clients, client.PlayerID)
				close(client.send)
			}
			m.mu.Unlock()
			m.logger.Debug("Client unregistered", zap.String("playerID", client.PlayerID))
		}
	}
}

// RegisterClient registers a new client connection.
func (m *ConnectionManager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient removes a connection. A no-op when the client has
// already been replaced by a newer connection for the same player.
func (m *ConnectionManager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// SendToPlayer queues a message for a connected player. Returns false when
// the player is offline or their send queue is full.
func (m *ConnectionManager) SendToPlayer(playerID string, message []byte) bool {
	m.mu.RLock()
	client, ok := m.clients[playerID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		m.logger.Warn("Send queue full, dropping message", zap.String("playerID", playerID))
		return false
	}
}

// ConnectedCount returns the number of active connections.
func (m *ConnectionManager) ConnectedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
