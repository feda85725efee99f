package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

const (
	writeWait     = 10 * time.Second
	updatesBuffer = 64
)

var ErrConnClosed = errors.New("connection closed")

// Conn carries one Agent over a WebSocket connection to the relay.
type Conn struct {
	logger *slog.Logger
	ws     *websocket.Conn
	agent  *Agent

	updates chan State

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to url (ws://host:port/ws) and starts feeding agent.
func Dial(ctx context.Context, logger *slog.Logger, url string, agent *Agent) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	conn := &Conn{
		logger:  logger.With("component", "agent"),
		ws:      ws,
		agent:   agent,
		updates: make(chan State, updatesBuffer),
		done:    make(chan struct{}),
	}

	go conn.run()

	return conn, nil
}

// Updates delivers a snapshot after every applied message. It is closed when
// the connection ends; snapshots are dropped if the reader falls behind.
func (that *Conn) Updates() <-chan State {
	return that.updates
}

// Done is closed when the connection ends.
func (that *Conn) Done() <-chan struct{} {
	return that.done
}

func (that *Conn) Agent() *Agent {
	return that.agent
}

func (that *Conn) Create() error {
	msg, err := that.agent.CreateMessage()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return that.write(msg)
}

func (that *Conn) Join(sessionID string) error {
	msg, err := that.agent.JoinMessage(sessionID)
	if err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}

	return that.write(msg)
}

// Move sends the move only if the local mirror allows it.
func (that *Conn) Move(cell int) error {
	if err := that.agent.CheckMove(cell); err != nil {
		return err
	}

	msg, err := that.agent.MoveMessage(cell)
	if err != nil {
		return fmt.Errorf("failed to make move: %w", err)
	}

	return that.write(msg)
}

func (that *Conn) Reset() error {
	msg, err := that.agent.ResetMessage()
	if err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	return that.write(msg)
}

// Close sends a close frame and releases the connection.
func (that *Conn) Close() error {
	that.writeMu.Lock()
	_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = that.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	that.writeMu.Unlock()

	that.finish()

	if err := that.ws.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}

func (that *Conn) write(msg protocol.Message) error {
	select {
	case <-that.done:
		return ErrConnClosed
	default:
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := that.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Action, err)
	}

	return nil
}

func (that *Conn) run() {
	log := that.logger.With("method", "run")

	defer close(that.updates)
	defer that.finish()

	for {
		_, data, err := that.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("connection lost", "error", err)
			}

			return
		}

		var msg protocol.Message
		if err = json.Unmarshal(data, &msg); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			continue
		}

		if err = that.agent.Apply(msg); err != nil {
			log.Warn("failed to apply message", "action", msg.Action, "error", err)
			continue
		}

		select {
		case that.updates <- that.agent.State():
		default:
			log.Debug("dropping state update", "action", msg.Action)
		}
	}
}

func (that *Conn) finish() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}
