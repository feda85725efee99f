package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
)

const internalErrorMessage = "internal error"

// clientErrors are safe to echo back to the participant verbatim.
var clientErrors = []error{
	apperror.ErrNotFound,
	apperror.ErrSessionFull,
	apperror.ErrUnauthorized,
	apperror.ErrInvalidInput,
	apperror.ErrCellOccupied,
	apperror.ErrOutOfTurn,
	apperror.ErrSessionTerminal,
	apperror.ErrSessionNotActive,
	apperror.ErrSessionAbandoned,
	apperror.ErrAlreadyInSession,
}

func (that *Server) handleCreate(ctx context.Context, participantID string, _ protocol.Payload) error {
	if _, err := that.registry.CreateSession(ctx, participantID); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (that *Server) handleJoin(ctx context.Context, participantID string, payload protocol.Payload) error {
	if payload.SessionID == "" {
		return fmt.Errorf("%w: session id is required", apperror.ErrInvalidInput)
	}

	if _, err := that.registry.JoinSession(ctx, participantID, payload.SessionID); err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}

	return nil
}

func (that *Server) handleMove(ctx context.Context, participantID string, payload protocol.Payload) error {
	if payload.SessionID == "" || payload.Cell == nil {
		return fmt.Errorf("%w: session id and cell index are required", apperror.ErrInvalidInput)
	}

	if _, err := that.registry.SubmitMove(ctx, participantID, payload.SessionID, *payload.Cell); err != nil {
		return fmt.Errorf("failed to make move: %w", err)
	}

	return nil
}

func (that *Server) handleReset(ctx context.Context, participantID string, payload protocol.Payload) error {
	if payload.SessionID == "" {
		return fmt.Errorf("%w: session id is required", apperror.ErrInvalidInput)
	}

	if _, err := that.registry.ResetSession(ctx, participantID, payload.SessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	return nil
}

// errorMessage maps err to the text sent in an error notice.
func errorMessage(err error) string {
	if errors.Is(err, errMalformedMessage) {
		return apperror.ErrInvalidInput.Error()
	}

	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return internalErrorMessage
}
