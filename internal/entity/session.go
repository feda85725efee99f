package entity

import (
	"time"
)

type Mark string

const (
	MarkX     Mark = "X"
	MarkO     Mark = "O"
	EmptyCell Mark = ""
)

// Opponent returns the mark that moves after m.
func (m Mark) Opponent() Mark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return EmptyCell
	}
}

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusWon       Status = "won"
	StatusDrawn     Status = "drawn"
	StatusAbandoned Status = "abandoned"
)

const BoardSize = 9

type Board [BoardSize]Mark

// Full reports whether every cell holds a mark.
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Session is one match between at most two participants. Slot 0 is always
// bound to MarkX, slot 1 to MarkO.
type Session struct {
	ID           string         `json:"id"`
	Board        Board          `json:"board"`
	Turn         Mark           `json:"turn"`
	Status       Status         `json:"status"`
	Winner       Mark           `json:"winner,omitempty"`
	Participants [2]Participant `json:"participants"`
	Moves        int            `json:"moves"`
	Round        int            `json:"round"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func NewSession(id, creatorID string) Session {
	return Session{
		ID:     id,
		Turn:   MarkX,
		Status: StatusWaiting,
		Participants: [2]Participant{
			{ID: creatorID, Mark: MarkX, Connected: true},
		},
	}
}

// MarkOf returns the mark bound to participantID.
func (that *Session) MarkOf(participantID string) (Mark, bool) {
	for _, p := range that.Participants {
		if p.ID != "" && p.ID == participantID {
			return p.Mark, true
		}
	}

	return EmptyCell, false
}

func (that *Session) IsFull() bool {
	return that.Participants[0].ID != "" && that.Participants[1].ID != ""
}

// ParticipantIDs returns the ids of connected participants in slot order.
func (that *Session) ParticipantIDs() []string {
	ids := make([]string, 0, len(that.Participants))
	for _, p := range that.Participants {
		if p.ID != "" && p.Connected {
			ids = append(ids, p.ID)
		}
	}

	return ids
}

func (that *Session) IsTerminal() bool {
	return that.Status == StatusWon || that.Status == StatusDrawn
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Session) IsActive() bool {
	return that.Status == StatusActive
}

func (that *Session) IsAbandoned() bool {
	return that.Status == StatusAbandoned
}
