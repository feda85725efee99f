package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

const shutdownTimeout = 5 * time.Second

var errMalformedMessage = errors.New("malformed message")

type uRegistry interface {
	CreateSession(ctx context.Context, participantID string) (entity.Session, error)
	JoinSession(ctx context.Context, participantID, sessionID string) (entity.Session, error)
	SubmitMove(ctx context.Context, participantID, sessionID string, cell int) (entity.Session, error)
	ResetSession(ctx context.Context, participantID, sessionID string) (entity.Session, error)
	Disconnect(ctx context.Context, participantID string)
}

type handlerFunc func(ctx context.Context, participantID string, payload protocol.Payload) error

type Server struct {
	logger   *slog.Logger
	registry uRegistry
	hub      *Hub
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, registry uRegistry, hub *Hub) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[protocol.ActionCreate] = server.handleCreate
	server.handlers[protocol.ActionJoin] = server.handleJoin
	server.handlers[protocol.ActionMove] = server.handleMove
	server.handlers[protocol.ActionReset] = server.handleReset

	return server
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that.Handler(ctx))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}

		that.hub.CloseAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Handler upgrades requests to WebSocket; ctx bounds every registry call made
// on behalf of the connection.
func (that *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		that.serveConnection(ctx, writer, req)
	})
}

func (that *Server) serveConnection(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveConnection")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	participantID := pkg.GenerateParticipantID()
	log = log.With("participantID", participantID)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := newConnection(participantID, ws, that.hub.sendBuffer)
	that.hub.register(conn)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		if err := conn.writePump(); err != nil {
			log.Debug("writer stopped", "error", err)
		}

		conn.close()
		_ = ws.Close()
	}()

	log.Info("WebSocket connection established")

	if msg, err := protocol.Connected(participantID); err == nil {
		conn.enqueue(msg)
	}

	if err = that.handleMessages(ctx, conn); err != nil {
		log.Error("error handling messages", "error", err)
	}

	that.registry.Disconnect(ctx, participantID)
	that.hub.unregister(conn)
	conn.close()

	wg.Wait()

	log.Info("WebSocket connection closed")
}

// handleMessages - processes messages from the client until the connection ends.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "handleMessages", "participantID", conn.participantID)

	for {
		msg, err := conn.read()
		if errors.Is(err, errMalformedMessage) {
			log.Warn("failed to unmarshal message", "error", err)
			that.sendError(conn, err)
			continue
		}

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("error reading message: %w", err)
			}

			return nil
		}

		handler, ok := that.handlers[msg.Action]
		if !ok {
			log.Warn("unknown action", "action", msg.Action)
			that.sendError(conn, fmt.Errorf("%w: unknown action %q", errMalformedMessage, msg.Action))
			continue
		}

		payload, err := msg.Decode()
		if err != nil {
			that.sendError(conn, fmt.Errorf("%w: %w", errMalformedMessage, err))
			continue
		}

		if err = handler(ctx, conn.participantID, payload); err != nil {
			if errorMessage(err) == internalErrorMessage {
				log.Error("failed to handle message", "action", msg.Action, "error", err)
			} else {
				log.Info("request rejected", "action", msg.Action, "error", err)
			}

			that.sendError(conn, err)
		}
	}
}

func (that *Server) sendError(conn *connection, err error) {
	msg, encodeErr := protocol.Error(errorMessage(err))
	if encodeErr != nil {
		that.logger.Error("failed to encode error notice", "error", encodeErr)
		return
	}

	if !conn.enqueue(msg) {
		that.logger.Warn("failed to send error notice", "participantID", conn.participantID)
	}
}
