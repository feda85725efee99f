package entity

type Participant struct {
	ID        string `json:"id"`
	Mark      Mark   `json:"mark,omitempty"`
	Connected bool   `json:"connected"`
}
