package apperror

import "errors"

var (
	ErrNotFound         = errors.New("session not found")
	ErrSessionFull      = errors.New("session already has two participants")
	ErrUnauthorized     = errors.New("participant is not bound to this session")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrOutOfTurn        = errors.New("it's not your turn")
	ErrSessionTerminal  = errors.New("game is already finished")
	ErrSessionNotActive = errors.New("game is not started")
	ErrSessionAbandoned = errors.New("opponent left the game")
	ErrAlreadyInSession = errors.New("participant is already in a game")
)
