package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

// Client intents.
const (
	ActionCreate = "session:create"
	ActionJoin   = "session:join"
	ActionMove   = "session:move"
	ActionReset  = "session:reset"
)

// Server notifications not produced by the registry.
const (
	ActionConnected = "connected"
	ActionError     = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	SessionID     string `json:"sessionId,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`
	Cell          *int   `json:"cellIndex,omitempty"`
	Mark          string `json:"mark,omitempty"`
	Status        string `json:"status,omitempty"`
	Winner        string `json:"winner,omitempty"`
	Message       string `json:"message,omitempty"`
}

// NewMessage wraps payload under action.
func NewMessage(action string, payload Payload) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Message{Action: action, Payload: raw}, nil
}

// Decode unmarshals the payload; an empty payload decodes to the zero value.
func (that *Message) Decode() (Payload, error) {
	var payload Payload

	if len(that.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(that.Payload, &payload); err != nil {
		return Payload{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

// FromEvent converts a registry event to its wire form.
func FromEvent(event entity.Event) (Message, error) {
	payload := Payload{
		SessionID:     event.SessionID,
		ParticipantID: event.ParticipantID,
	}

	switch event.Kind {
	case entity.EventMoveApplied:
		cell := event.Cell
		payload.Cell = &cell
		payload.Mark = string(event.Mark)
		payload.Status = string(event.Status)
		payload.Winner = string(event.Winner)
	case entity.EventParticipantLeft:
		payload.Status = string(event.Status)
	}

	return NewMessage(string(event.Kind), payload)
}

func Connected(participantID string) (Message, error) {
	return NewMessage(ActionConnected, Payload{ParticipantID: participantID})
}

func Error(message string) (Message, error) {
	return NewMessage(ActionError, Payload{Message: message})
}

func Create() (Message, error) {
	return Message{Action: ActionCreate}, nil
}

func Join(sessionID string) (Message, error) {
	return NewMessage(ActionJoin, Payload{SessionID: sessionID})
}

func Move(sessionID string, cell int, mark entity.Mark) (Message, error) {
	return NewMessage(ActionMove, Payload{SessionID: sessionID, Cell: &cell, Mark: string(mark)})
}

func Reset(sessionID string) (Message, error) {
	return NewMessage(ActionReset, Payload{SessionID: sessionID})
}
