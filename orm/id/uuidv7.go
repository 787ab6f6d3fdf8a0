package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewV7 returns a time-ordered UUID v7 string.
func NewV7() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("id: generate uuid v7: %w", err)
	}
	return u.String(), nil
}

// Correlation returns a v7 id for tagging one invocation, falling back to a random v4
// id when the clock-based generator fails.
func Correlation() string {
	if v, err := NewV7(); err == nil {
		return v
	}
	return uuid.NewString()
}
