package rest

import (
	"net/http"
	"strconv"
)

type PingHandler interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
}

type connectionsDep interface {
	Len() int
}

type pingHandler struct {
	connections connectionsDep
}

// NewPingHandler - connections reports live WebSocket participants in the
// X-Connections header.
func NewPingHandler(connections connectionsDep) PingHandler {
	return &pingHandler{connections: connections}
}

func (that *pingHandler) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Connections", strconv.Itoa(that.connections.Len()))
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte("pong"))
}
