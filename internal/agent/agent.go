package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-relay/internal/tictactoe"
)

type Phase string

const (
	PhaseNone      Phase = "none"
	PhaseCreating  Phase = "creating"
	PhaseJoining   Phase = "joining"
	PhaseWaiting   Phase = "waiting"
	PhaseActive    Phase = "active"
	PhaseWon       Phase = "won"
	PhaseDrawn     Phase = "drawn"
	PhaseAbandoned Phase = "abandoned"
)

// State is a participant's local copy of the session as last relayed.
type State struct {
	ParticipantID   string
	SessionID       string
	Mark            entity.Mark
	Board           entity.Board
	Turn            entity.Mark
	Winner          entity.Mark
	Phase           Phase
	OpponentPresent bool
}

// Agent mirrors one participant's view of a session. Only Apply changes the
// board, turn or phase derived from the server; intents set a pending phase.
type Agent struct {
	errorWindow time.Duration
	now         func() time.Time

	mu        sync.Mutex
	state     State
	pendingOf Phase
	lastError string
	errorAt   time.Time

	// inFlight lists sent intents in order until the server answers them.
	inFlight []string
}

type Option func(*Agent)

func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// New - errorWindow is how long an error notice stays visible.
func New(errorWindow time.Duration, opts ...Option) *Agent {
	agent := &Agent{
		errorWindow: errorWindow,
		now:         time.Now,
		state:       State{Phase: PhaseNone},
	}

	for _, opt := range opts {
		opt(agent)
	}

	return agent
}

// State returns a copy of the mirror.
func (that *Agent) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// Apply folds one server message into the mirror.
func (that *Agent) Apply(msg protocol.Message) error {
	payload, err := msg.Decode()
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", msg.Action, err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	state := &that.state

	switch msg.Action {
	case protocol.ActionConnected:
		state.ParticipantID = payload.ParticipantID

	case string(entity.EventSessionCreated):
		that.answered(protocol.ActionCreate)
		that.enterSession(payload.SessionID, entity.MarkX, PhaseWaiting, false)

	case string(entity.EventSessionJoined):
		that.answered(protocol.ActionJoin)
		that.enterSession(payload.SessionID, entity.MarkO, PhaseActive, true)

	case string(entity.EventParticipantJoined):
		if !that.current(payload.SessionID) || payload.ParticipantID == state.ParticipantID {
			return nil
		}

		state.OpponentPresent = true
		if state.Phase == PhaseWaiting {
			state.Phase = PhaseActive
		}

	case string(entity.EventMoveApplied):
		if !that.current(payload.SessionID) {
			return nil
		}

		if payload.Cell == nil || *payload.Cell < 0 || *payload.Cell >= entity.BoardSize {
			return fmt.Errorf("%w: move without a valid cell", apperror.ErrInvalidInput)
		}

		mark := entity.Mark(payload.Mark)
		if mark == state.Mark {
			that.answered(protocol.ActionMove)
		}

		state.Board[*payload.Cell] = mark
		state.Turn = mark.Opponent()
		state.Winner = entity.Mark(payload.Winner)
		state.Phase = phaseOf(entity.Status(payload.Status))

	case string(entity.EventSessionReset):
		if !that.current(payload.SessionID) {
			return nil
		}

		that.answered(protocol.ActionReset)

		state.Board = entity.Board{}
		state.Turn = entity.MarkX
		state.Winner = entity.EmptyCell

		if state.OpponentPresent {
			state.Phase = PhaseActive
		} else {
			state.Phase = PhaseWaiting
		}

	case string(entity.EventParticipantLeft):
		if !that.current(payload.SessionID) {
			return nil
		}

		state.OpponentPresent = false
		state.Phase = PhaseAbandoned

	case string(entity.EventSessionExpired):
		if !that.current(payload.SessionID) {
			return nil
		}

		that.state = State{ParticipantID: state.ParticipantID, Phase: PhaseNone}

	case protocol.ActionError:
		that.lastError = payload.Message
		that.errorAt = that.now()

		if len(that.inFlight) == 0 {
			return nil
		}

		rejected := that.inFlight[0]
		that.inFlight = that.inFlight[1:]

		pending := (rejected == protocol.ActionCreate && state.Phase == PhaseCreating) ||
			(rejected == protocol.ActionJoin && state.Phase == PhaseJoining)
		if pending {
			state.Phase = that.pendingOf
		}
	}

	return nil
}

// CheckMove reports whether the server would accept cell from this
// participant right now. It is advisory; the server decides.
func (that *Agent) CheckMove(cell int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.SessionID == "" {
		return apperror.ErrNotFound
	}

	session := entity.Session{
		ID:     that.state.SessionID,
		Board:  that.state.Board,
		Turn:   that.state.Turn,
		Status: statusOf(that.state.Phase),
	}

	if err := tictactoe.ValidateMove(&session, that.state.Mark, cell); err != nil {
		return fmt.Errorf("move rejected locally: %w", err)
	}

	return nil
}

// CreateMessage builds a create intent and marks the agent as creating.
func (that *Agent) CreateMessage() (protocol.Message, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.confirmFree(); err != nil {
		return protocol.Message{}, err
	}

	msg, err := protocol.Create()
	if err != nil {
		return protocol.Message{}, err
	}

	that.pendingOf = that.state.Phase
	that.state.Phase = PhaseCreating
	that.inFlight = append(that.inFlight, msg.Action)

	return msg, nil
}

// JoinMessage builds a join intent and marks the agent as joining.
func (that *Agent) JoinMessage(sessionID string) (protocol.Message, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if sessionID == "" {
		return protocol.Message{}, fmt.Errorf("%w: empty session id", apperror.ErrInvalidInput)
	}

	if err := that.confirmFree(); err != nil {
		return protocol.Message{}, err
	}

	msg, err := protocol.Join(sessionID)
	if err != nil {
		return protocol.Message{}, err
	}

	that.pendingOf = that.state.Phase
	that.state.Phase = PhaseJoining
	that.inFlight = append(that.inFlight, msg.Action)

	return msg, nil
}

func (that *Agent) MoveMessage(cell int) (protocol.Message, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.SessionID == "" {
		return protocol.Message{}, apperror.ErrNotFound
	}

	msg, err := protocol.Move(that.state.SessionID, cell, that.state.Mark)
	if err != nil {
		return protocol.Message{}, err
	}

	that.inFlight = append(that.inFlight, msg.Action)

	return msg, nil
}

func (that *Agent) ResetMessage() (protocol.Message, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.SessionID == "" {
		return protocol.Message{}, apperror.ErrNotFound
	}

	msg, err := protocol.Reset(that.state.SessionID)
	if err != nil {
		return protocol.Message{}, err
	}

	that.inFlight = append(that.inFlight, msg.Action)

	return msg, nil
}

// ErrorNotice returns the last error message while it is still displayable.
func (that *Agent) ErrorNotice(now time.Time) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.lastError == "" || now.Sub(that.errorAt) >= that.errorWindow {
		return "", false
	}

	return that.lastError, true
}

// enterSession must be called with mu held.
func (that *Agent) enterSession(sessionID string, mark entity.Mark, phase Phase, opponent bool) {
	that.state = State{
		ParticipantID:   that.state.ParticipantID,
		SessionID:       sessionID,
		Mark:            mark,
		Turn:            entity.MarkX,
		Phase:           phase,
		OpponentPresent: opponent,
	}
}

// answered drops the oldest in-flight intent of the given action. Must be
// called with mu held.
func (that *Agent) answered(action string) {
	for i, sent := range that.inFlight {
		if sent == action {
			that.inFlight = append(that.inFlight[:i], that.inFlight[i+1:]...)
			return
		}
	}
}

// current must be called with mu held.
func (that *Agent) current(sessionID string) bool {
	return sessionID != "" && sessionID == that.state.SessionID
}

// confirmFree must be called with mu held.
func (that *Agent) confirmFree() error {
	switch that.state.Phase {
	case PhaseCreating, PhaseJoining, PhaseWaiting, PhaseActive:
		return apperror.ErrAlreadyInSession
	default:
		return nil
	}
}

func phaseOf(status entity.Status) Phase {
	switch status {
	case entity.StatusWon:
		return PhaseWon
	case entity.StatusDrawn:
		return PhaseDrawn
	case entity.StatusAbandoned:
		return PhaseAbandoned
	case entity.StatusWaiting:
		return PhaseWaiting
	default:
		return PhaseActive
	}
}

func statusOf(phase Phase) entity.Status {
	switch phase {
	case PhaseActive:
		return entity.StatusActive
	case PhaseWon:
		return entity.StatusWon
	case PhaseDrawn:
		return entity.StatusDrawn
	case PhaseAbandoned:
		return entity.StatusAbandoned
	default:
		return entity.StatusWaiting
	}
}
