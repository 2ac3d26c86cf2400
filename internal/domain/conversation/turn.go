package conversation

import (
	"fmt"
	"time"
)

// MaxTurns is the per-session history cap.
const MaxTurns = 10

// Role of a turn's author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session, oldest first in history slices.
type Turn struct {
	SessionID  string   `json:"session_id"`
	Role       Role     `json:"role"`
	Text       string   `json:"text"`
	ProductIDs []string `json:"product_ids,omitempty"`
	// ProductNames mirrors ProductIDs so follow-ups can reuse names without a catalog read.
	ProductNames []string  `json:"product_names,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Validate checks the role and session binding.
func (t Turn) Validate() error {
	if t.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	switch t.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("unknown role %q", t.Role)
	}
	return nil
}

// IsFirstExchange reports whether history holds at most the current
// exchange, i.e. the user has not talked to the assistant before.
func IsFirstExchange(history []Turn) bool {
	for _, t := range history {
		if t.Role == RoleAssistant {
			return false
		}
	}
	return true
}

// LastAssistant returns the most recent assistant turn, if any.
func LastAssistant(history []Turn) (Turn, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant {
			return history[i], true
		}
	}
	return Turn{}, false
}
