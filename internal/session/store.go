package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talentops/cv-advisor/internal/agent"
)

// Store is an in-memory session registry, safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func key(userID, sessionID string) string {
	return userID + "/" + sessionID
}

// Create registers a new session. An empty sessionID gets a generated one.
func (s *Store) Create(userID, sessionID string) *Session {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now()
	sess := &Session{ID: sessionID, UserID: userID, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	s.sessions[key(userID, sessionID)] = sess
	s.mu.Unlock()

	return snapshot(sess)
}

// Get returns a snapshot of the session, or ErrNotFound.
func (s *Store) Get(userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[key(userID, sessionID)]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(sess), nil
}

// GetOrCreate fetches the session if it exists and creates it otherwise.
// The caller's sessionID is adopted so conversation identifiers survive
// across clients that mint their own.
func (s *Store) GetOrCreate(userID, sessionID string) *Session {
	if sessionID != "" {
		s.mu.RLock()
		sess, ok := s.sessions[key(userID, sessionID)]
		s.mu.RUnlock()
		if ok {
			return snapshot(sess)
		}
	}
	return s.Create(userID, sessionID)
}

// Append adds messages to the session transcript.
func (s *Store) Append(userID, sessionID string, msgs ...agent.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key(userID, sessionID)]
	if !ok {
		return ErrNotFound
	}
	sess.History = append(sess.History, msgs...)
	sess.UpdatedAt = time.Now()
	return nil
}

// Delete removes the session. Deleting a missing session returns ErrNotFound.
func (s *Store) Delete(userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, sessionID)
	if _, ok := s.sessions[k]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, k)
	return nil
}

// List returns snapshots of all sessions belonging to the user.
func (s *Store) List(userID string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, snapshot(sess))
		}
	}
	return out
}

func snapshot(sess *Session) *Session {
	cp := *sess
	cp.History = make([]agent.Message, len(sess.History))
	copy(cp.History, sess.History)
	return &cp
}
