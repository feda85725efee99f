package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

func TestFromEvent(t *testing.T) {
	t.Run("Move keeps cell zero on the wire", func(t *testing.T) {
		// Given: a move on the first cell
		event := entity.Event{
			Kind:      entity.EventMoveApplied,
			SessionID: "12345678",
			Cell:      0,
			Mark:      entity.MarkX,
			Status:    entity.StatusActive,
		}

		// When: converting it
		msg, err := FromEvent(event)
		require.NoError(t, err)

		// Then: cellIndex is present even though it is zero
		assert.Equal(t, "move:applied", msg.Action)
		assert.JSONEq(t, `{"sessionId":"12345678","cellIndex":0,"mark":"X","status":"active"}`, string(msg.Payload))
	})

	t.Run("Join notification carries the participant", func(t *testing.T) {
		msg, err := FromEvent(entity.Event{Kind: entity.EventParticipantJoined, SessionID: "1", ParticipantID: "p2"})
		require.NoError(t, err)

		assert.Equal(t, "participant:joined", msg.Action)
		assert.JSONEq(t, `{"sessionId":"1","participantId":"p2"}`, string(msg.Payload))
	})
}

func TestMessage_Decode(t *testing.T) {
	t.Run("Empty payload", func(t *testing.T) {
		msg := Message{Action: ActionCreate}

		payload, err := msg.Decode()

		require.NoError(t, err)
		assert.Equal(t, Payload{}, payload)
	})

	t.Run("Malformed payload", func(t *testing.T) {
		msg := Message{Action: ActionMove, Payload: json.RawMessage(`{"cellIndex":"four"}`)}

		_, err := msg.Decode()

		require.Error(t, err)
	})

	t.Run("Move intent", func(t *testing.T) {
		msg, err := Move("42", 7, entity.MarkO)
		require.NoError(t, err)

		payload, err := msg.Decode()

		require.NoError(t, err)
		require.NotNil(t, payload.Cell)
		assert.Equal(t, 7, *payload.Cell)
		assert.Equal(t, "42", payload.SessionID)
		assert.Equal(t, "O", payload.Mark)
	})
}
