package agent_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/agent"
	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/repository"
	"github.com/rocketscienceinc/tictactoe-relay/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-relay/transport/websocket"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func startRelay(t *testing.T) (string, *slog.Logger) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := websocket.NewHub(logger, 16)
	registry := usecase.NewRegistry(logger, hub, repository.NopMatchRepository{}, time.Minute)
	server := websocket.New(logger, registry, hub)

	httpServer := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(func() {
		hub.CloseAll()
		httpServer.Close()
	})

	return "ws" + strings.TrimPrefix(httpServer.URL, "http"), logger
}

func dial(t *testing.T, url string, logger *slog.Logger) *agent.Conn {
	t.Helper()

	conn, err := agent.Dial(context.Background(), logger, url, agent.New(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	require.Eventually(t, func() bool {
		return conn.Agent().State().ParticipantID != ""
	}, waitFor, tick)

	return conn
}

func eventually(t *testing.T, conn *agent.Conn, condition func(agent.State) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		return condition(conn.Agent().State())
	}, waitFor, tick)
}

func TestConn_PlayToWin(t *testing.T) {
	// Given: two agents connected to a relay
	url, logger := startRelay(t)
	x := dial(t, url, logger)
	o := dial(t, url, logger)

	// When: X creates a session and O joins it
	require.NoError(t, x.Create())
	eventually(t, x, func(s agent.State) bool { return s.Phase == agent.PhaseWaiting })

	require.NoError(t, o.Join(x.Agent().State().SessionID))
	eventually(t, x, func(s agent.State) bool { return s.Phase == agent.PhaseActive })
	eventually(t, o, func(s agent.State) bool { return s.Phase == agent.PhaseActive })

	// When: they alternate until X completes the diagonal
	moves := []struct {
		conn *agent.Conn
		cell int
	}{
		{x, 0}, {o, 1}, {x, 4}, {o, 2}, {x, 8},
	}

	for i, move := range moves {
		require.NoError(t, move.conn.Move(move.cell))

		applied := i + 1
		for _, conn := range []*agent.Conn{x, o} {
			eventually(t, conn, func(s agent.State) bool { return countMarks(s.Board) == applied })
		}
	}

	// Then: both mirrors agree on the outcome
	for _, conn := range []*agent.Conn{x, o} {
		state := conn.Agent().State()
		assert.Equal(t, agent.PhaseWon, state.Phase)
		assert.Equal(t, entity.MarkX, state.Winner)
	}

	assert.Equal(t, x.Agent().State().Board, o.Agent().State().Board)
}

func TestConn_MoveRefusedLocally(t *testing.T) {
	// Given: an active game where X is to move
	url, logger := startRelay(t)
	x := dial(t, url, logger)
	o := dial(t, url, logger)

	require.NoError(t, x.Create())
	eventually(t, x, func(s agent.State) bool { return s.SessionID != "" })
	require.NoError(t, o.Join(x.Agent().State().SessionID))
	eventually(t, o, func(s agent.State) bool { return s.Phase == agent.PhaseActive })

	before := o.Agent().State()

	// When: O tries to move out of turn
	err := o.Move(4)

	// Then: nothing is sent and the mirror is unchanged
	require.ErrorIs(t, err, apperror.ErrOutOfTurn)
	assert.Equal(t, before, o.Agent().State())
}

func TestConn_ServerErrorIsShown(t *testing.T) {
	// Given: a connected agent
	url, logger := startRelay(t)
	conn := dial(t, url, logger)

	// When: it joins a session that does not exist
	require.NoError(t, conn.Join("00000000"))

	// Then: the error notice appears and the agent is free again
	require.Eventually(t, func() bool {
		notice, ok := conn.Agent().ErrorNotice(time.Now())
		return ok && notice == apperror.ErrNotFound.Error()
	}, waitFor, tick)

	assert.Equal(t, agent.PhaseNone, conn.Agent().State().Phase)
}

func TestConn_OpponentLeaves(t *testing.T) {
	url, logger := startRelay(t)
	x := dial(t, url, logger)
	o := dial(t, url, logger)

	require.NoError(t, x.Create())
	eventually(t, x, func(s agent.State) bool { return s.SessionID != "" })
	require.NoError(t, o.Join(x.Agent().State().SessionID))
	eventually(t, x, func(s agent.State) bool { return s.Phase == agent.PhaseActive })

	require.NoError(t, o.Close())

	eventually(t, x, func(s agent.State) bool { return s.Phase == agent.PhaseAbandoned })
	require.ErrorIs(t, x.Move(0), apperror.ErrSessionAbandoned)

	select {
	case <-o.Done():
	case <-time.After(waitFor):
		t.Fatal("closed connection is not done")
	}
}

func countMarks(board entity.Board) int {
	n := 0
	for _, cell := range board {
		if cell != entity.EmptyCell {
			n++
		}
	}

	return n
}
