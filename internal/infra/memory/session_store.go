package memory

import (
	"sort"
	"sync"

	"quiz-session-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	ended    map[string]struct{}
	players  map[string]string
	bySess   map[string][]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		ended:    make(map[string]struct{}),
		players:  make(map[string]string),
		bySess:   make(map[string][]string),
	}
}

func (s *SessionStore) Add(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// Remove forgets the session and every player bound to it.
func (s *SessionStore) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.ended, sessionID)
	for _, playerID := range s.bySess[sessionID] {
		delete(s.players, playerID)
	}
	delete(s.bySess, sessionID)
}

func (s *SessionStore) MarkEnded(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		s.ended[sessionID] = struct{}{}
	}
}

// SessionsForQuiz returns sorted session ids of the quiz, split by whether they ended.
func (s *SessionStore) SessionsForQuiz(quizID string) ([]string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make([]string, 0)
	ended := make([]string, 0)
	for id, session := range s.sessions {
		if session.QuizID() != quizID {
			continue
		}
		if _, ok := s.ended[id]; ok {
			ended = append(ended, id)
		} else {
			active = append(active, id)
		}
	}
	sort.Strings(active)
	sort.Strings(ended)
	return active, ended
}

func (s *SessionStore) BindPlayer(playerID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	s.players[playerID] = sessionID
	s.bySess[sessionID] = append(s.bySess[sessionID], playerID)
}

func (s *SessionStore) SessionForPlayer(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) All() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}
