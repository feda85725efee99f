package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

const (
	self     = "self"
	opponent = "opponent"
	session  = "12345678"
)

func event(t *testing.T, kind entity.EventKind, payload protocol.Payload) protocol.Message {
	t.Helper()

	payload.SessionID = session
	msg, err := protocol.NewMessage(string(kind), payload)
	require.NoError(t, err)

	return msg
}

func moved(t *testing.T, cell int, mark entity.Mark, status entity.Status, winner entity.Mark) protocol.Message {
	t.Helper()

	return event(t, entity.EventMoveApplied, protocol.Payload{
		Cell:   &cell,
		Mark:   string(mark),
		Status: string(status),
		Winner: string(winner),
	})
}

func apply(t *testing.T, agent *Agent, msgs ...protocol.Message) {
	t.Helper()

	for _, msg := range msgs {
		require.NoError(t, agent.Apply(msg))
	}
}

func connected(t *testing.T) protocol.Message {
	t.Helper()

	msg, err := protocol.Connected(self)
	require.NoError(t, err)

	return msg
}

// creatorInGame returns an agent playing X in an active session.
func creatorInGame(t *testing.T) *Agent {
	t.Helper()

	agent := New(3 * time.Second)
	apply(t, agent,
		connected(t),
		event(t, entity.EventSessionCreated, protocol.Payload{}),
		event(t, entity.EventParticipantJoined, protocol.Payload{ParticipantID: opponent}),
	)

	return agent
}

func TestAgent_CreateFlow(t *testing.T) {
	// Given: a fresh agent
	agent := New(3 * time.Second)
	apply(t, agent, connected(t))

	// When: it sends a create intent
	_, err := agent.CreateMessage()
	require.NoError(t, err)

	// Then: it waits for the server without touching the board
	assert.Equal(t, PhaseCreating, agent.State().Phase)
	assert.Equal(t, entity.Board{}, agent.State().Board)

	// When: the server confirms and an opponent joins
	apply(t, agent, event(t, entity.EventSessionCreated, protocol.Payload{}))
	assert.Equal(t, PhaseWaiting, agent.State().Phase)

	apply(t, agent, event(t, entity.EventParticipantJoined, protocol.Payload{ParticipantID: opponent}))

	// Then: the game is active with X to move
	state := agent.State()
	assert.Equal(t, self, state.ParticipantID)
	assert.Equal(t, session, state.SessionID)
	assert.Equal(t, entity.MarkX, state.Mark)
	assert.Equal(t, entity.MarkX, state.Turn)
	assert.Equal(t, PhaseActive, state.Phase)
	assert.True(t, state.OpponentPresent)
}

func TestAgent_JoinFlow(t *testing.T) {
	agent := New(3 * time.Second)
	apply(t, agent, connected(t))

	_, err := agent.JoinMessage(session)
	require.NoError(t, err)
	assert.Equal(t, PhaseJoining, agent.State().Phase)

	apply(t, agent,
		event(t, entity.EventSessionJoined, protocol.Payload{}),
		event(t, entity.EventParticipantJoined, protocol.Payload{ParticipantID: self}),
	)

	state := agent.State()
	assert.Equal(t, entity.MarkO, state.Mark)
	assert.Equal(t, PhaseActive, state.Phase)
	assert.True(t, state.OpponentPresent)
	require.ErrorIs(t, agent.CheckMove(0), apperror.ErrOutOfTurn)
}

func TestAgent_Moves(t *testing.T) {
	t.Run("Board follows the relay", func(t *testing.T) {
		agent := creatorInGame(t)

		apply(t, agent,
			moved(t, 4, entity.MarkX, entity.StatusActive, entity.EmptyCell),
			moved(t, 0, entity.MarkO, entity.StatusActive, entity.EmptyCell),
		)

		state := agent.State()
		assert.Equal(t, entity.MarkX, state.Board[4])
		assert.Equal(t, entity.MarkO, state.Board[0])
		assert.Equal(t, entity.MarkX, state.Turn)
	})

	t.Run("Win ends the game", func(t *testing.T) {
		agent := creatorInGame(t)

		apply(t, agent,
			moved(t, 0, entity.MarkX, entity.StatusActive, entity.EmptyCell),
			moved(t, 3, entity.MarkO, entity.StatusActive, entity.EmptyCell),
			moved(t, 1, entity.MarkX, entity.StatusActive, entity.EmptyCell),
			moved(t, 4, entity.MarkO, entity.StatusActive, entity.EmptyCell),
			moved(t, 2, entity.MarkX, entity.StatusWon, entity.MarkX),
		)

		state := agent.State()
		assert.Equal(t, PhaseWon, state.Phase)
		assert.Equal(t, entity.MarkX, state.Winner)
		require.ErrorIs(t, agent.CheckMove(5), apperror.ErrSessionTerminal)
	})

	t.Run("Move for another session is ignored", func(t *testing.T) {
		agent := creatorInGame(t)
		cell := 4
		msg, err := protocol.NewMessage(string(entity.EventMoveApplied), protocol.Payload{
			SessionID: "87654321",
			Cell:      &cell,
			Mark:      "X",
			Status:    "active",
		})
		require.NoError(t, err)

		apply(t, agent, msg)

		assert.Equal(t, entity.Board{}, agent.State().Board)
	})
}

func TestAgent_CheckMove(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T) *Agent
		cell    int
		wantErr error
	}{
		{
			name:    "No session",
			prepare: func(*testing.T) *Agent { return New(time.Second) },
			cell:    0,
			wantErr: apperror.ErrNotFound,
		},
		{
			name: "Waiting for opponent",
			prepare: func(t *testing.T) *Agent {
				agent := New(time.Second)
				apply(t, agent, event(t, entity.EventSessionCreated, protocol.Payload{}))

				return agent
			},
			cell:    0,
			wantErr: apperror.ErrSessionNotActive,
		},
		{
			name:    "Out of range",
			prepare: creatorInGame,
			cell:    9,
			wantErr: apperror.ErrInvalidInput,
		},
		{
			name: "Occupied",
			prepare: func(t *testing.T) *Agent {
				agent := creatorInGame(t)
				apply(t, agent,
					moved(t, 4, entity.MarkX, entity.StatusActive, entity.EmptyCell),
					moved(t, 0, entity.MarkO, entity.StatusActive, entity.EmptyCell),
				)

				return agent
			},
			cell:    4,
			wantErr: apperror.ErrCellOccupied,
		},
		{
			name: "Not own turn",
			prepare: func(t *testing.T) *Agent {
				agent := creatorInGame(t)
				apply(t, agent, moved(t, 4, entity.MarkX, entity.StatusActive, entity.EmptyCell))

				return agent
			},
			cell:    0,
			wantErr: apperror.ErrOutOfTurn,
		},
		{
			name:    "Legal",
			prepare: creatorInGame,
			cell:    8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := tt.prepare(t)
			before := agent.State()

			err := agent.CheckMove(tt.cell)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, before, agent.State())
		})
	}
}

func TestAgent_ErrorNotice(t *testing.T) {
	// Given: an agent in a game with a controllable clock
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	agent := New(3*time.Second, WithClock(func() time.Time { return start }))
	apply(t, agent, event(t, entity.EventSessionCreated, protocol.Payload{}))
	before := agent.State()

	// When: the server rejects something
	msg, err := protocol.Error("it's not your turn")
	require.NoError(t, err)
	apply(t, agent, msg)

	// Then: the notice is visible inside the window only and nothing else changed
	notice, ok := agent.ErrorNotice(start.Add(time.Second))
	assert.True(t, ok)
	assert.Equal(t, "it's not your turn", notice)

	_, ok = agent.ErrorNotice(start.Add(3 * time.Second))
	assert.False(t, ok)

	assert.Equal(t, before, agent.State())
}

func TestAgent_PendingPhaseReverts(t *testing.T) {
	// Given: an agent that asked to join an unknown session
	agent := New(time.Second)
	_, err := agent.JoinMessage("00000000")
	require.NoError(t, err)

	// When: the server answers with an error
	msg, err := protocol.Error(apperror.ErrNotFound.Error())
	require.NoError(t, err)
	apply(t, agent, msg)

	// Then: the agent is free to try again
	assert.Equal(t, PhaseNone, agent.State().Phase)

	_, err = agent.CreateMessage()
	require.NoError(t, err)
}

func TestAgent_ErrorForEarlierIntentKeepsPendingPhase(t *testing.T) {
	// Given: a finished game where a reset was sent and then a create
	agent := creatorInGame(t)
	apply(t, agent, moved(t, 0, entity.MarkX, entity.StatusWon, entity.MarkX))

	_, err := agent.ResetMessage()
	require.NoError(t, err)
	_, err = agent.CreateMessage()
	require.NoError(t, err)

	// When: the reset is rejected
	msg, err := protocol.Error(apperror.ErrSessionAbandoned.Error())
	require.NoError(t, err)
	apply(t, agent, msg)

	// Then: the create is still pending
	assert.Equal(t, PhaseCreating, agent.State().Phase)

	// When: the create is rejected as well
	msg, err = protocol.Error(apperror.ErrAlreadyInSession.Error())
	require.NoError(t, err)
	apply(t, agent, msg)

	// Then: the agent is back where it started
	assert.Equal(t, PhaseWon, agent.State().Phase)
}

func TestAgent_AnsweredMoveIsNotBlamedForLaterErrors(t *testing.T) {
	// Given: an accepted own move followed by a create intent
	agent := creatorInGame(t)

	_, err := agent.MoveMessage(4)
	require.NoError(t, err)
	apply(t, agent, moved(t, 4, entity.MarkX, entity.StatusWon, entity.MarkX))

	_, err = agent.CreateMessage()
	require.NoError(t, err)

	// When: an error arrives
	msg, err := protocol.Error(apperror.ErrAlreadyInSession.Error())
	require.NoError(t, err)
	apply(t, agent, msg)

	// Then: it is attributed to the create, not the answered move
	assert.Equal(t, PhaseWon, agent.State().Phase)
}

func TestAgent_IntentsWhileInGame(t *testing.T) {
	agent := creatorInGame(t)

	_, err := agent.CreateMessage()
	require.ErrorIs(t, err, apperror.ErrAlreadyInSession)

	_, err = agent.JoinMessage("87654321")
	require.ErrorIs(t, err, apperror.ErrAlreadyInSession)

	assert.Equal(t, PhaseActive, agent.State().Phase)
}

func TestAgent_Lifecycle(t *testing.T) {
	t.Run("Reset after draw", func(t *testing.T) {
		agent := creatorInGame(t)
		apply(t, agent, moved(t, 0, entity.MarkX, entity.StatusDrawn, entity.EmptyCell))
		require.Equal(t, PhaseDrawn, agent.State().Phase)

		apply(t, agent, event(t, entity.EventSessionReset, protocol.Payload{}))

		state := agent.State()
		assert.Equal(t, PhaseActive, state.Phase)
		assert.Equal(t, entity.Board{}, state.Board)
		assert.Equal(t, entity.MarkX, state.Turn)
	})

	t.Run("Opponent leaves", func(t *testing.T) {
		agent := creatorInGame(t)

		apply(t, agent, event(t, entity.EventParticipantLeft, protocol.Payload{
			ParticipantID: opponent,
			Status:        string(entity.StatusAbandoned),
		}))

		assert.Equal(t, PhaseAbandoned, agent.State().Phase)
		assert.False(t, agent.State().OpponentPresent)
		require.ErrorIs(t, agent.CheckMove(0), apperror.ErrSessionAbandoned)

		_, err := agent.CreateMessage()
		require.NoError(t, err)
	})

	t.Run("Session expires", func(t *testing.T) {
		agent := creatorInGame(t)

		apply(t, agent, event(t, entity.EventSessionExpired, protocol.Payload{}))

		assert.Equal(t, State{ParticipantID: self, Phase: PhaseNone}, agent.State())
	})
}
