package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Outcome evaluates the board: a completed line wins, a full board without
// one is a draw, anything else keeps the game going.
func Outcome(board entity.Board) (entity.Status, entity.Mark) {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.StatusWon, a
		}
	}

	if board.Full() {
		return entity.StatusDrawn, entity.EmptyCell
	}

	return entity.StatusActive, entity.EmptyCell
}

// Created announces a new session to its creator.
func Created(session entity.Session) []entity.Outbound {
	return []entity.Outbound{{
		To:    []string{session.Participants[0].ID},
		Event: entity.Event{Kind: entity.EventSessionCreated, SessionID: session.ID},
	}}
}

// Join binds participantID to the second mark and starts the game.
func Join(session entity.Session, participantID string) (entity.Session, []entity.Outbound, error) {
	if _, ok := session.MarkOf(participantID); ok {
		return session, nil, apperror.ErrAlreadyInSession
	}

	if session.IsFull() {
		return session, nil, fmt.Errorf("%w: game id %s", apperror.ErrSessionFull, session.ID)
	}

	if !session.IsWaiting() {
		return session, nil, apperror.ErrSessionAbandoned
	}

	session.Participants[1] = entity.Participant{ID: participantID, Mark: entity.MarkO, Connected: true}
	session.Status = entity.StatusActive

	events := []entity.Outbound{
		{
			To:    []string{participantID},
			Event: entity.Event{Kind: entity.EventSessionJoined, SessionID: session.ID},
		},
		{
			To: session.ParticipantIDs(),
			Event: entity.Event{
				Kind:          entity.EventParticipantJoined,
				SessionID:     session.ID,
				ParticipantID: participantID,
			},
		},
	}

	return session, events, nil
}

// Move applies a move by participantID. The mark written is the one bound to
// the participant, never one supplied by the client.
func Move(session entity.Session, participantID string, cell int) (entity.Session, []entity.Outbound, error) {
	mark, ok := session.MarkOf(participantID)
	if !ok {
		return session, nil, apperror.ErrUnauthorized
	}

	if err := confirmPlayable(&session); err != nil {
		return session, nil, err
	}

	if err := validateMove(&session, mark, cell); err != nil {
		return session, nil, fmt.Errorf("invalid turn: %w", err)
	}

	session.Board[cell] = mark
	session.Turn = mark.Opponent()
	session.Moves++
	session.Status, session.Winner = Outcome(session.Board)

	events := []entity.Outbound{{
		To: session.ParticipantIDs(),
		Event: entity.Event{
			Kind:      entity.EventMoveApplied,
			SessionID: session.ID,
			Cell:      cell,
			Mark:      mark,
			Status:    session.Status,
			Winner:    session.Winner,
		},
	}}

	return session, events, nil
}

// Reset clears the board for a new round with the same mark bindings.
func Reset(session entity.Session, participantID string) (entity.Session, []entity.Outbound, error) {
	if _, ok := session.MarkOf(participantID); !ok {
		return session, nil, apperror.ErrUnauthorized
	}

	if session.IsAbandoned() {
		return session, nil, apperror.ErrSessionAbandoned
	}

	session.Board = entity.Board{}
	session.Turn = entity.MarkX
	session.Winner = entity.EmptyCell
	session.Moves = 0
	session.Round++

	if session.IsFull() {
		session.Status = entity.StatusActive
	} else {
		session.Status = entity.StatusWaiting
	}

	events := []entity.Outbound{{
		To:    session.ParticipantIDs(),
		Event: entity.Event{Kind: entity.EventSessionReset, SessionID: session.ID},
	}}

	return session, events, nil
}

// Leave marks participantID as gone. A session that had an opponent is
// abandoned and the opponent is told about it.
func Leave(session entity.Session, participantID string) (entity.Session, []entity.Outbound) {
	for i := range session.Participants {
		if session.Participants[i].ID == participantID {
			session.Participants[i].Connected = false
		}
	}

	if !session.IsFull() || session.IsAbandoned() {
		return session, nil
	}

	session.Status = entity.StatusAbandoned

	remaining := session.ParticipantIDs()
	if len(remaining) == 0 {
		return session, nil
	}

	return session, []entity.Outbound{{
		To: remaining,
		Event: entity.Event{
			Kind:          entity.EventParticipantLeft,
			SessionID:     session.ID,
			ParticipantID: participantID,
			Status:        session.Status,
		},
	}}
}

// Expire notifies whoever is still connected that the session is gone.
func Expire(session entity.Session) []entity.Outbound {
	remaining := session.ParticipantIDs()
	if len(remaining) == 0 {
		return nil
	}

	return []entity.Outbound{{
		To:    remaining,
		Event: entity.Event{Kind: entity.EventSessionExpired, SessionID: session.ID},
	}}
}

// ValidateMove runs the board-level checks shared with clients.
func ValidateMove(session *entity.Session, mark entity.Mark, cell int) error {
	if err := confirmPlayable(session); err != nil {
		return err
	}

	return validateMove(session, mark, cell)
}

func confirmPlayable(session *entity.Session) error {
	switch session.Status {
	case entity.StatusActive:
		return nil
	case entity.StatusWon, entity.StatusDrawn:
		return apperror.ErrSessionTerminal
	case entity.StatusAbandoned:
		return apperror.ErrSessionAbandoned
	case entity.StatusWaiting:
		return apperror.ErrSessionNotActive
	default:
		return fmt.Errorf("%w: unknown game status %q", apperror.ErrSessionNotActive, session.Status)
	}
}

// validateMove - checks if the move is valid.
func validateMove(session *entity.Session, mark entity.Mark, cell int) error {
	if cell < 0 || cell >= len(session.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidInput, cell)
	}

	if session.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	if session.Turn != mark {
		return apperror.ErrOutOfTurn
	}

	return nil
}
