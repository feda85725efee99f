package entity

import "time"

type EventKind string

const (
	EventSessionCreated    EventKind = "session:created"
	EventSessionJoined     EventKind = "session:joined"
	EventParticipantJoined EventKind = "participant:joined"
	EventMoveApplied       EventKind = "move:applied"
	EventSessionReset      EventKind = "session:restarted"
	EventParticipantLeft   EventKind = "participant:left"
	EventSessionExpired    EventKind = "session:expired"
)

// Event is an authoritative notification produced by the registry.
type Event struct {
	Kind          EventKind
	SessionID     string
	ParticipantID string
	Cell          int
	Mark          Mark
	Status        Status
	Winner        Mark
}

// Outbound addresses an event to a set of participants.
type Outbound struct {
	To    []string
	Event Event
}

// MatchResult describes a finished round.
type MatchResult struct {
	SessionID    string    `json:"session_id"`
	Round        int       `json:"round"`
	Outcome      Status    `json:"outcome"`
	Winner       Mark      `json:"winner,omitempty"`
	Participants []string  `json:"participants"`
	Moves        int       `json:"moves"`
	FinishedAt   time.Time `json:"finished_at"`
}

func NewMatchResult(session Session, finishedAt time.Time) MatchResult {
	participants := make([]string, 0, len(session.Participants))
	for _, p := range session.Participants {
		if p.ID != "" {
			participants = append(participants, p.ID)
		}
	}

	return MatchResult{
		SessionID:    session.ID,
		Round:        session.Round,
		Outcome:      session.Status,
		Winner:       session.Winner,
		Participants: participants,
		Moves:        session.Moves,
		FinishedAt:   finishedAt,
	}
}
