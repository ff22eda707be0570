package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Add(session *Session)
	Get(sessionID string) (*Session, bool)
	Remove(sessionID string)
	MarkEnded(sessionID string)
	SessionsForQuiz(quizID string) (active, ended []string)
	BindPlayer(playerID, sessionID string)
	SessionForPlayer(playerID string) (*Session, bool)
	All() []*Session
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Options tunes session behaviour.
type Options struct {
	Countdown          time.Duration
	ReapAfter          time.Duration
	MaxAutoStartNum    int
	MaxActivePerQuiz   int
	MaxDurationSeconds int
	Now                func() time.Time
	Scheduler          Scheduler
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Countdown:          defaultCountdown,
		ReapAfter:          10 * time.Minute,
		MaxAutoStartNum:    50,
		MaxActivePerQuiz:   10,
		MaxDurationSeconds: domain.DefaultMaxDurationSeconds,
		Now:                time.Now,
	}
}

// SessionService contains the session use cases exposed to the transport layer.
type SessionService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	opts     Options

	// createMu keeps the per-quiz active session cap exact under concurrent creates.
	createMu sync.Mutex
}

func NewSessionService(store SessionRepository, quizzes QuizRepository, opts Options) *SessionService {
	defaults := DefaultOptions()
	if opts.Countdown <= 0 {
		opts.Countdown = defaults.Countdown
	}
	if opts.ReapAfter <= 0 {
		opts.ReapAfter = defaults.ReapAfter
	}
	if opts.MaxAutoStartNum <= 0 {
		opts.MaxAutoStartNum = defaults.MaxAutoStartNum
	}
	if opts.MaxActivePerQuiz <= 0 {
		opts.MaxActivePerQuiz = defaults.MaxActivePerQuiz
	}
	if opts.MaxDurationSeconds <= 0 {
		opts.MaxDurationSeconds = defaults.MaxDurationSeconds
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	return &SessionService{sessions: store, quizzes: quizzes, opts: opts}
}

// CreateSession snapshots the quiz and registers a new session in LOBBY.
func (s *SessionService) CreateSession(ctx context.Context, quizID, hostID string, autoStartNum int) (string, error) {
	if autoStartNum < 0 || autoStartNum > s.opts.MaxAutoStartNum {
		return "", domain.ErrAutoStartNum
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	if quiz.OwnerID != "" && quiz.OwnerID != hostID {
		return "", domain.ErrNotQuizOwner
	}
	if len(quiz.Questions) == 0 {
		return "", domain.ErrEmptyQuiz
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	active, _ := s.sessions.SessionsForQuiz(quizID)
	if len(active) >= s.opts.MaxActivePerQuiz {
		return "", domain.ErrTooManySessions
	}

	session := NewSession(SessionOptions{
		HostID:       hostID,
		Quiz:         quiz,
		AutoStartNum: autoStartNum,
		Countdown:    s.opts.Countdown,
		Now:          s.opts.Now,
		Scheduler:    s.opts.Scheduler,

		MaxQuestionDuration: time.Duration(s.opts.MaxDurationSeconds) * time.Second,

		OnEnd: func(ended *Session) {
			s.sessions.MarkEnded(ended.ID())
		},
	})
	s.sessions.Add(session)
	log.Printf("session %s created for quiz %s", session.ID(), quizID)
	return session.ID(), nil
}

// ListSessions returns a quiz's session ids split into active and ended.
func (s *SessionService) ListSessions(ctx context.Context, quizID, hostID string) (domain.SessionList, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionList{}, err
	}
	if quiz.OwnerID != "" && quiz.OwnerID != hostID {
		return domain.SessionList{}, domain.ErrNotQuizOwner
	}
	active, ended := s.sessions.SessionsForQuiz(quizID)
	return domain.SessionList{ActiveSessions: active, InactiveSessions: ended}, nil
}

// HasActiveSession reports whether the quiz has a session that has not ended.
func (s *SessionService) HasActiveSession(quizID string) bool {
	active, _ := s.sessions.SessionsForQuiz(quizID)
	return len(active) > 0
}

// GuardStructuralEdit is consulted by quiz authoring before changing a quiz's questions.
func (s *SessionService) GuardStructuralEdit(quizID string) error {
	if s.HasActiveSession(quizID) {
		return domain.ErrQuizInUse
	}
	return nil
}

func (s *SessionService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionService) hostSession(sessionID, hostID string) (*Session, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if session.HostID() != "" && session.HostID() != hostID {
		return nil, domain.ErrNotQuizOwner
	}
	return session, nil
}

func (s *SessionService) playerSession(playerID string) (*Session, error) {
	session, ok := s.sessions.SessionForPlayer(playerID)
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return session, nil
}

// UpdateSessionState applies a host action.
func (s *SessionService) UpdateSessionState(ctx context.Context, sessionID, hostID string, action domain.Action) error {
	session, err := s.hostSession(sessionID, hostID)
	if err != nil {
		return err
	}
	return session.Apply(ctx, action)
}

// GetSessionStatus returns the session stage, question pointer and players.
func (s *SessionService) GetSessionStatus(ctx context.Context, sessionID string) (domain.SessionStatus, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return session.Status(ctx)
}

// GetFinalResults returns rankings and per-question statistics.
func (s *SessionService) GetFinalResults(ctx context.Context, sessionID string) (domain.FinalResults, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.FinalResults{}, err
	}
	return exec(ctx, session, session.finalResults)
}

// PlayerJoin adds a player to a session in LOBBY. An empty name is replaced by a generated one.
func (s *SessionService) PlayerJoin(ctx context.Context, sessionID, name string) (string, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return "", err
	}
	playerID, err := exec(ctx, session, func() (string, error) {
		return session.join(name)
	})
	if err != nil {
		return "", err
	}
	s.sessions.BindPlayer(playerID, sessionID)
	return playerID, nil
}

// PlayerSubmitAnswer records a player's answer for the 1-based question position.
func (s *SessionService) PlayerSubmitAnswer(ctx context.Context, playerID string, position int, answerIDs []int) error {
	session, err := s.playerSession(playerID)
	if err != nil {
		return err
	}
	_, err = exec(ctx, session, func() (struct{}, error) {
		return struct{}{}, session.submit(playerID, position, answerIDs)
	})
	return err
}

func (s *SessionService) PlayerStatus(ctx context.Context, playerID string) (domain.PlayerStatus, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.PlayerStatus{}, err
	}
	return exec(ctx, session, func() (domain.PlayerStatus, error) {
		return session.playerStatus(playerID)
	})
}

func (s *SessionService) PlayerQuestion(ctx context.Context, playerID string, position int) (domain.PlayerQuestion, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.PlayerQuestion{}, err
	}
	return exec(ctx, session, func() (domain.PlayerQuestion, error) {
		return session.playerQuestion(playerID, position)
	})
}

func (s *SessionService) PlayerQuestionResults(ctx context.Context, playerID string, position int) (domain.QuestionResult, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	return exec(ctx, session, func() (domain.QuestionResult, error) {
		return session.playerQuestionResult(playerID, position)
	})
}

func (s *SessionService) PlayerFinalResults(ctx context.Context, playerID string) (domain.FinalResults, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.FinalResults{}, err
	}
	return exec(ctx, session, session.finalResults)
}

func (s *SessionService) SendChat(ctx context.Context, playerID, body string) error {
	session, err := s.playerSession(playerID)
	if err != nil {
		return err
	}
	_, err = exec(ctx, session, func() (struct{}, error) {
		return struct{}{}, session.sendChat(playerID, body)
	})
	return err
}

func (s *SessionService) ChatMessages(ctx context.Context, playerID string) ([]domain.ChatMessage, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return nil, err
	}
	return exec(ctx, session, func() ([]domain.ChatMessage, error) {
		return session.chatMessages(playerID)
	})
}

// SubscribePlayer streams status updates of the session the player joined.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) SubscribePlayer(ctx context.Context, playerID string) (<-chan domain.SessionStatus, func(), error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return nil, nil, err
	}
	return session.Subscribe(ctx)
}

// ReapEnded removes sessions that have been in END for longer than ReapAfter.
func (s *SessionService) ReapEnded(ctx context.Context) int {
	reaped := 0
	now := s.opts.Now()
	for _, session := range s.sessions.All() {
		ended, at, err := session.Ended(ctx)
		if err != nil || !ended || now.Sub(at) < s.opts.ReapAfter {
			continue
		}
		s.sessions.Remove(session.ID())
		session.Close()
		reaped++
		log.Printf("session %s reaped", session.ID())
	}
	return reaped
}

// RunReaper calls ReapEnded every interval until ctx is done.
func (s *SessionService) RunReaper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.ReapEnded(ctx)
		}
	}
}

// Shutdown stops every live session loop.
func (s *SessionService) Shutdown() {
	for _, session := range s.sessions.All() {
		session.Close()
	}
}
