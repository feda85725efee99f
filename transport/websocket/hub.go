package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

// Hub maps participant ids to live connections and delivers registry events
// to them without blocking. A connection that cannot keep up is closed.
type Hub struct {
	logger     *slog.Logger
	sendBuffer int

	mu          sync.RWMutex
	connections map[string]*connection
}

func NewHub(logger *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}

	return &Hub{
		logger:      logger.With("component", "hub"),
		sendBuffer:  sendBuffer,
		connections: make(map[string]*connection),
	}
}

// Notify implements the registry notifier.
func (that *Hub) Notify(participantID string, event entity.Event) {
	msg, err := protocol.FromEvent(event)
	if err != nil {
		that.logger.Error("failed to encode event", "event", event.Kind, "error", err)
		return
	}

	that.Send(participantID, msg)
}

// Send enqueues msg for participantID and reports whether it was accepted.
func (that *Hub) Send(participantID string, msg protocol.Message) bool {
	that.mu.RLock()
	conn, ok := that.connections[participantID]
	that.mu.RUnlock()

	if !ok {
		that.logger.Debug("connection not found for participant", "participantID", participantID, "action", msg.Action)
		return false
	}

	if !conn.enqueue(msg) {
		that.logger.Warn("closing connection of slow participant", "participantID", participantID, "action", msg.Action)
		return false
	}

	return true
}

// Len returns the number of connected participants.
func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.connections)
}

func (that *Hub) register(conn *connection) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.connections[conn.participantID] = conn
}

func (that *Hub) unregister(conn *connection) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.connections[conn.participantID] == conn {
		delete(that.connections, conn.participantID)
	}
}

// CloseAll closes every connection; used on shutdown since hijacked
// connections outlive http.Server.Shutdown.
func (that *Hub) CloseAll() {
	that.mu.RLock()
	conns := make([]*connection, 0, len(that.connections))
	for _, conn := range that.connections {
		conns = append(conns, conn)
	}
	that.mu.RUnlock()

	for _, conn := range conns {
		conn.close()
	}
}
