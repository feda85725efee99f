package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const sessionIDSpace = 100_000_000

// GenerateSessionID - generates an 8-digit code participants can type in to join.
func GenerateSessionID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(sessionIDSpace))
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	return fmt.Sprintf("%08d", n.Int64()), nil
}

// GenerateParticipantID - generates a new unique participant id.
func GenerateParticipantID() string {
	return uuid.NewString()
}
