package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type connection struct {
	participantID string
	ws            *websocket.Conn

	send      chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(participantID string, ws *websocket.Conn, sendBuffer int) *connection {
	return &connection{
		participantID: participantID,
		ws:            ws,
		send:          make(chan protocol.Message, sendBuffer),
		done:          make(chan struct{}),
	}
}

// enqueue never blocks. A participant whose queue is full has missed an
// event for good, so its connection is closed rather than left out of sync.
func (that *connection) enqueue(msg protocol.Message) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.send <- msg:
		return true
	default:
		that.close()
		return false
	}
}

func (that *connection) closed() bool {
	select {
	case <-that.done:
		return true
	default:
		return false
	}
}

func (that *connection) close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

// read blocks until the next text frame and decodes it.
func (that *connection) read() (protocol.Message, error) {
	_, data, err := that.ws.ReadMessage()
	if err != nil {
		return protocol.Message{}, err
	}

	var msg protocol.Message
	if err = json.Unmarshal(data, &msg); err != nil {
		return protocol.Message{}, fmt.Errorf("%w: %w", errMalformedMessage, err)
	}

	return msg, nil
}

// writePump is the only writer of ws; it runs until the connection closes.
func (that *connection) writePump() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteJSON(msg); err != nil {
				return fmt.Errorf("failed to write message: %w", err)
			}
		case <-ticker.C:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("failed to write ping: %w", err)
			}
		case <-that.done:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = that.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}
