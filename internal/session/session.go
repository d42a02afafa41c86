// Package session keeps per-user conversation state between turns.
//
// State is process-local and lost on restart. Each session holds the ordered
// transcript of one conversation; reads hand out snapshots so callers never
// observe a transcript mid-append.
package session

import (
	"errors"
	"time"

	"github.com/talentops/cv-advisor/internal/agent"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session: not found")

// Session is one conversation's state. Values returned by the store are
// snapshots; mutating them does not affect the stored session.
type Session struct {
	ID        string
	UserID    string
	History   []agent.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}
