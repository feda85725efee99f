package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-relay/internal/tictactoe"
)

const maxIDAttempts = 16

type notifierDep interface {
	Notify(participantID string, event entity.Event)
}

type matchRecorderDep interface {
	Record(ctx context.Context, result entity.MatchResult) error
}

type sessionEntry struct {
	mu      sync.Mutex
	session entity.Session
	closed  bool
}

// Registry is the authority over all live sessions. Operations on one session
// are serialized by that session's lock; different sessions never contend on
// anything but short map lookups.
//
// Lock order: a session lock may be held while taking mu or bindMu, never the
// other way round. Two session locks are taken in session id order.
type Registry struct {
	logger   *slog.Logger
	notifier notifierDep
	recorder matchRecorderDep
	ttl      time.Duration
	now      func() time.Time
	newID    func() (string, error)

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	bindMu   sync.Mutex
	bindings map[string]string // participantID -> sessionID
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithIDGenerator(newID func() (string, error)) Option {
	return func(r *Registry) {
		r.newID = newID
	}
}

// NewRegistry - ttl is the idle time after which Sweep drops a session; zero disables expiry.
func NewRegistry(logger *slog.Logger, notifier notifierDep, recorder matchRecorderDep, ttl time.Duration, opts ...Option) *Registry {
	registry := &Registry{
		logger:   logger.With("component", "registry"),
		notifier: notifier,
		recorder: recorder,
		ttl:      ttl,
		now:      time.Now,
		newID:    pkg.GenerateSessionID,

		sessions: make(map[string]*sessionEntry),
		bindings: make(map[string]string),
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// CreateSession opens a new session with participantID bound to X. A finished
// or abandoned previous session is left only once the new one exists.
func (that *Registry) CreateSession(_ context.Context, participantID string) (entity.Session, error) {
	log := that.logger.With("method", "CreateSession", "participantID", participantID)

	previous, err := that.lockPrevious(participantID, "")
	if err != nil {
		return entity.Session{}, err
	}

	if previous != nil {
		defer previous.mu.Unlock()
	}

	for range maxIDAttempts {
		id, err := that.newID()
		if err != nil {
			return entity.Session{}, fmt.Errorf("failed create session: %w", err)
		}

		entry := &sessionEntry{session: entity.NewSession(id, participantID)}
		entry.session.UpdatedAt = that.now()

		entry.mu.Lock()

		that.mu.Lock()
		if _, exists := that.sessions[id]; exists {
			that.mu.Unlock()
			entry.mu.Unlock()
			log.Debug("session id collision, retrying", "sessionID", id)
			continue
		}
		that.sessions[id] = entry
		that.mu.Unlock()

		if previous != nil {
			that.leaveLocked(previous, participantID)
		}

		that.bind(participantID, id)
		that.dispatch(tictactoe.Created(entry.session))
		session := entry.session

		entry.mu.Unlock()

		log.Info("session created", "sessionID", id)

		return session, nil
	}

	return entity.Session{}, fmt.Errorf("failed create session: no free id after %d attempts", maxIDAttempts)
}

// JoinSession binds participantID to O in an existing waiting session. The
// participant's previous session is left only if the join is accepted.
func (that *Registry) JoinSession(_ context.Context, participantID, sessionID string) (entity.Session, error) {
	log := that.logger.With("method", "JoinSession", "participantID", participantID, "sessionID", sessionID)

	entry, ok := that.lookup(sessionID)
	if !ok {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	// Two entry locks are taken in session id order.
	var previous *sessionEntry

	if previousID, bound := that.binding(participantID); bound && previousID < sessionID {
		var err error
		if previous, err = that.lockPrevious(participantID, sessionID); err != nil {
			return entity.Session{}, err
		}

		entry.mu.Lock()
	} else {
		entry.mu.Lock()

		var err error
		if previous, err = that.lockPrevious(participantID, sessionID); err != nil {
			entry.mu.Unlock()
			return entity.Session{}, err
		}
	}

	defer entry.mu.Unlock()

	if previous != nil {
		defer previous.mu.Unlock()
	}

	if entry.closed {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	session, events, err := tictactoe.Join(entry.session, participantID)
	if err != nil {
		return entry.session, fmt.Errorf("failed join game: %w", err)
	}

	if previous != nil {
		that.leaveLocked(previous, participantID)
	}

	session.UpdatedAt = that.now()
	entry.session = session

	that.bind(participantID, sessionID)
	that.dispatch(events)

	log.Info("participant joined")

	return session, nil
}

// SubmitMove applies a move for participantID. Concurrent submissions on the
// same session are evaluated one after another against the latest state.
func (that *Registry) SubmitMove(ctx context.Context, participantID, sessionID string, cell int) (entity.Session, error) {
	log := that.logger.With("method", "SubmitMove", "participantID", participantID, "sessionID", sessionID)

	entry, ok := that.lookup(sessionID)
	if !ok {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	entry.mu.Lock()

	if entry.closed {
		entry.mu.Unlock()
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	session, events, err := tictactoe.Move(entry.session, participantID, cell)
	if err != nil {
		current := entry.session
		entry.mu.Unlock()

		return current, fmt.Errorf("failed make turn: %w", err)
	}

	finishedAt := that.now()
	session.UpdatedAt = finishedAt
	entry.session = session

	that.dispatch(events)

	entry.mu.Unlock()

	log.Debug("move applied", "cell", cell, "status", session.Status)

	if session.IsTerminal() {
		log.Info("game finished", "status", session.Status, "winner", session.Winner)
		that.record(ctx, entity.NewMatchResult(session, finishedAt))
	}

	return session, nil
}

// ResetSession starts a new round keeping both mark bindings.
func (that *Registry) ResetSession(_ context.Context, participantID, sessionID string) (entity.Session, error) {
	log := that.logger.With("method", "ResetSession", "participantID", participantID, "sessionID", sessionID)

	entry, ok := that.lookup(sessionID)
	if !ok {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	session, events, err := tictactoe.Reset(entry.session, participantID)
	if err != nil {
		return entry.session, fmt.Errorf("failed reset game: %w", err)
	}

	session.UpdatedAt = that.now()
	entry.session = session

	that.dispatch(events)

	log.Info("game reset", "round", session.Round)

	return session, nil
}

// Disconnect drops participantID from its session. The opponent, if any, is
// told and the session is abandoned; an empty session is removed.
func (that *Registry) Disconnect(_ context.Context, participantID string) {
	log := that.logger.With("method", "Disconnect", "participantID", participantID)

	sessionID, ok := that.binding(participantID)
	if !ok {
		return
	}

	entry, ok := that.lookup(sessionID)
	if !ok {
		that.unbind(participantID, sessionID)
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		that.unbind(participantID, sessionID)
		return
	}

	that.leaveLocked(entry, participantID)

	log.Info("participant disconnected", "sessionID", sessionID, "status", entry.session.Status)
}

// Session returns a copy of the session state.
func (that *Registry) Session(sessionID string) (entity.Session, error) {
	entry, ok := that.lookup(sessionID)
	if !ok {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return entity.Session{}, fmt.Errorf("%w: game id %s", apperror.ErrNotFound, sessionID)
	}

	return entry.session, nil
}

// Stats counts live sessions by status.
func (that *Registry) Stats() map[entity.Status]int {
	stats := make(map[entity.Status]int)

	for _, entry := range that.entries() {
		entry.mu.Lock()
		if !entry.closed {
			stats[entry.session.Status]++
		}
		entry.mu.Unlock()
	}

	return stats
}

// lockPrevious returns the session participantID is bound to, locked, when it
// is finished or abandoned and may be left. Nothing is returned when the
// participant is unbound or bound to target; a live session is an error.
func (that *Registry) lockPrevious(participantID, target string) (*sessionEntry, error) {
	sessionID, ok := that.binding(participantID)
	if !ok || sessionID == target {
		return nil, nil
	}

	entry, ok := that.lookup(sessionID)
	if !ok {
		that.unbind(participantID, sessionID)
		return nil, nil
	}

	entry.mu.Lock()

	if entry.closed {
		entry.mu.Unlock()
		that.unbind(participantID, sessionID)

		return nil, nil
	}

	if !entry.session.IsTerminal() && !entry.session.IsAbandoned() {
		entry.mu.Unlock()
		return nil, fmt.Errorf("%w: game id %s", apperror.ErrAlreadyInSession, sessionID)
	}

	return entry, nil
}

// leaveLocked must be called with entry.mu held.
func (that *Registry) leaveLocked(entry *sessionEntry, participantID string) {
	session, events := tictactoe.Leave(entry.session, participantID)
	session.UpdatedAt = that.now()
	entry.session = session

	that.unbind(participantID, session.ID)
	that.dispatch(events)

	if len(session.ParticipantIDs()) == 0 {
		that.removeLocked(entry)
	}
}

// removeLocked must be called with entry.mu held.
func (that *Registry) removeLocked(entry *sessionEntry) {
	entry.closed = true

	that.mu.Lock()
	delete(that.sessions, entry.session.ID)
	that.mu.Unlock()

	for _, p := range entry.session.Participants {
		if p.ID != "" {
			that.unbind(p.ID, entry.session.ID)
		}
	}
}

func (that *Registry) dispatch(events []entity.Outbound) {
	for _, out := range events {
		for _, participantID := range out.To {
			that.notifier.Notify(participantID, out.Event)
		}
	}
}

func (that *Registry) record(ctx context.Context, result entity.MatchResult) {
	if err := that.recorder.Record(ctx, result); err != nil {
		that.logger.Error("failed to record match", "sessionID", result.SessionID, "error", err)
	}
}

func (that *Registry) lookup(sessionID string) (*sessionEntry, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.sessions[sessionID]

	return entry, ok
}

func (that *Registry) entries() []*sessionEntry {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entries := make([]*sessionEntry, 0, len(that.sessions))
	for _, entry := range that.sessions {
		entries = append(entries, entry)
	}

	return entries
}

func (that *Registry) binding(participantID string) (string, bool) {
	that.bindMu.Lock()
	defer that.bindMu.Unlock()

	sessionID, ok := that.bindings[participantID]

	return sessionID, ok
}

func (that *Registry) bind(participantID, sessionID string) {
	that.bindMu.Lock()
	defer that.bindMu.Unlock()

	that.bindings[participantID] = sessionID
}

func (that *Registry) unbind(participantID, sessionID string) {
	that.bindMu.Lock()
	defer that.bindMu.Unlock()

	if that.bindings[participantID] == sessionID {
		delete(that.bindings, participantID)
	}
}
